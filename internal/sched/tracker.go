package sched

import (
	"fmt"
	"sync"
	"time"
)

// Progress is a consistent point-in-time view of an in-flight run.
type Progress struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Running   int `json:"running"`
	Total     int `json:"total"`
}

// Terminal reports whether every task has reached a terminal state.
func (p Progress) Terminal() bool {
	return p.Completed+p.Failed+p.Skipped == p.Total
}

// ProgressTracker owns the aggregate run state: per-task statuses, terminal
// results and counters. All mutations happen under a single mutex so that a
// concurrent reader never observes a status updated without its accompanying
// counter update.
//
// Snapshot may be called at any time from outside the run (for example by a
// progress monitor) without blocking task execution for more than the
// duration of a counter copy.
type ProgressTracker struct {
	mu      sync.Mutex
	status  map[string]TaskStatus
	results map[string]TaskResult
	counts  Progress
}

// NewProgressTracker creates a tracker with every task in Pending state.
func NewProgressTracker(ids []string) *ProgressTracker {
	t := &ProgressTracker{
		status:  make(map[string]TaskStatus, len(ids)),
		results: make(map[string]TaskResult, len(ids)),
	}
	for _, id := range ids {
		t.status[id] = TaskStatusPending
	}
	t.counts.Total = len(ids)
	return t
}

// MarkReady transitions a task from Pending to Ready. Called by the
// coordinator when the task's batch starts.
func (t *ProgressTracker) MarkReady(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(id, TaskStatusReady, TaskStatusPending)
}

// RecordStart transitions a task from Ready to Running.
func (t *ProgressTracker) RecordStart(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transition(id, TaskStatusRunning, TaskStatusReady); err != nil {
		return err
	}
	t.counts.Running++
	return nil
}

// RecordResult transitions a Running task to Completed or Failed and stores
// its terminal result.
func (t *ProgressTracker) RecordResult(id string, status TaskStatus, duration time.Duration, err error) error {
	if status != TaskStatusCompleted && status != TaskStatusFailed {
		return fmt.Errorf("result status must be terminal success or failure, got %q", status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if terr := t.transition(id, status, TaskStatusRunning); terr != nil {
		return terr
	}
	t.counts.Running--
	if status == TaskStatusCompleted {
		t.counts.Completed++
	} else {
		t.counts.Failed++
	}
	t.results[id] = TaskResult{ID: id, Status: status, Duration: duration, Err: err}
	return nil
}

// MarkSkipped transitions a Pending or Ready task to Skipped. Marking a task
// that is already terminal is a no-op, so cascaded skips are idempotent.
func (t *ProgressTracker) MarkSkipped(id string, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.status[id]
	if !ok {
		return fmt.Errorf("unknown task %q", id)
	}
	if cur.IsTerminal() {
		return nil
	}
	if err := t.transition(id, TaskStatusSkipped, TaskStatusPending, TaskStatusReady); err != nil {
		return err
	}
	t.counts.Skipped++
	t.results[id] = TaskResult{ID: id, Status: TaskStatusSkipped, Err: cause}
	return nil
}

// Status returns the current status of a task.
func (t *ProgressTracker) Status(id string) (TaskStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.status[id]
	return s, ok
}

// Snapshot returns a consistent copy of the run counters.
func (t *ProgressTracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}

// Results returns a copy of all terminal task results recorded so far,
// keyed by task id.
func (t *ProgressTracker) Results() map[string]TaskResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]TaskResult, len(t.results))
	for id, r := range t.results {
		out[id] = r
	}
	return out
}

// transition moves a task to the given status if its current status is one
// of the allowed prior states. Callers must hold t.mu.
func (t *ProgressTracker) transition(id string, to TaskStatus, from ...TaskStatus) error {
	cur, ok := t.status[id]
	if !ok {
		return fmt.Errorf("unknown task %q", id)
	}
	for _, f := range from {
		if cur == f {
			t.status[id] = to
			return nil
		}
	}
	return fmt.Errorf("invalid transition for task %q: %s -> %s", id, cur, to)
}
