package sched

import (
	"errors"
	"fmt"
	"strings"
)

// Structural validation errors. These are returned synchronously before any
// batch is computed or executed; no RunReport is produced alongside them.
var (
	// ErrInvalidTaskSet is returned for malformed input, such as a duplicate
	// or empty task id.
	ErrInvalidTaskSet = errors.New("invalid task set")

	// ErrUnknownDependency is returned when a task references a dependency
	// id that does not exist in the input list.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrCircularDependency is returned when the dependency graph contains
	// a cycle.
	ErrCircularDependency = errors.New("circular dependency")
)

// UnknownDependencyError identifies the task and the missing dependency id
// that caused graph validation to fail.
type UnknownDependencyError struct {
	TaskID       string
	DependencyID string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("%s: task %q depends on unknown task %q",
		ErrUnknownDependency.Error(), e.TaskID, e.DependencyID)
}

func (e *UnknownDependencyError) Unwrap() error { return ErrUnknownDependency }

// CircularDependencyError carries the full cycle path for diagnostics.
// Path is an ordered list of task ids where the first and last entries are
// the same task.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return ErrCircularDependency.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCircularDependency.Error(), strings.Join(e.Path, " -> "))
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// TimeoutError is a specialization of a task execution failure raised when a
// per-task timeout elapses. It flows through the normal FailurePolicy path.
type TimeoutError struct {
	TaskID  string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %q timed out after %s", e.TaskID, e.Timeout)
}

func invalidTaskSetf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTaskSet, fmt.Sprintf(format, args...))
}
