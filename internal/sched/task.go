package sched

import (
	"context"
	"time"
)

// TaskStatus represents the current state of a scheduled task
type TaskStatus string

// Possible task status values. Transitions are monotonic: a task never
// revisits an earlier state.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusReady     TaskStatus = "ready"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// IsTerminal reports whether the status is terminal (finished).
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// RunStatus represents the overall outcome of a run.
type RunStatus string

// Possible run status values
const (
	// RunStatusCompleted means every task completed successfully.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusCompletedWithFailures means the run finished all batches but
	// at least one task failed or was skipped because of a failed ancestor.
	RunStatusCompletedWithFailures RunStatus = "completed_with_failures"

	// RunStatusAborted means the run was abandoned before all batches were
	// processed, either by the failure policy or by cancellation.
	RunStatusAborted RunStatus = "aborted"
)

// TaskDescriptor describes a unit of work submitted to the scheduler.
// It is created once per run from caller input and is immutable for the
// run's lifetime.
type TaskDescriptor struct {
	// ID is the task's unique, stable identifier within the run.
	ID string

	// Dependencies lists the IDs of tasks that must complete successfully
	// before this task may run. May be empty.
	Dependencies []string

	// Payload is an opaque handle passed unchanged to the execution callback.
	Payload any
}

// ExecuteFunc is the execution callback invoked exactly once per task, by
// exactly one worker. A non-nil error marks the task failed; whether that
// aborts the run is decided by the active FailurePolicy.
type ExecuteFunc func(ctx context.Context, payload any) error

// TaskResult records the terminal outcome of a single task.
type TaskResult struct {
	ID       string
	Status   TaskStatus
	Duration time.Duration
	Err      error
}
