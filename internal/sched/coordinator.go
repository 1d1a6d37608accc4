package sched

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Skip causes recorded on tasks that never ran.
var (
	// ErrDependencyFailed marks a task skipped because a direct or
	// transitive dependency failed.
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrRunAborted marks a task skipped because the run was abandoned
	// before its batch was reached.
	ErrRunAborted = errors.New("run aborted")
)

// Config holds the recognized coordinator options.
type Config struct {
	// MaxConcurrencyPerBatch caps the worker pool used within a batch.
	// Zero or negative means unbounded up to the batch size.
	MaxConcurrencyPerBatch int

	// PerTaskTimeout marks a task failed with a TimeoutError after the
	// configured duration. Zero means no timeout.
	PerTaskTimeout time.Duration

	// Policy decides how batch failures affect subsequent scheduling.
	// Nil defaults to complete-all.
	Policy FailurePolicy
}

// RunReport is the complete, internally consistent outcome of a run. The
// caller is guaranteed to receive either a structural error or a RunReport,
// never a silently truncated result.
type RunReport struct {
	RunID      uuid.UUID
	Status     RunStatus
	Tasks      map[string]TaskResult
	StartedAt  time.Time
	FinishedAt time.Time

	// TotalDuration is the wall-clock duration of the batched run.
	TotalDuration time.Duration

	// SequentialDuration is the sum of all individual task durations.
	SequentialDuration time.Duration

	// SpeedupFactor is SequentialDuration / TotalDuration.
	SpeedupFactor float64
}

// Coordinator executes a planned run: batches strictly sequentially, tasks
// within a batch concurrently through a bounded worker pool. It updates the
// ProgressTracker continuously and consults the FailurePolicy after every
// batch settles.
type Coordinator struct {
	runID   uuid.UUID
	graph   *Graph
	plan    *Plan
	execute ExecuteFunc
	cfg     Config
	tracker *ProgressTracker
	policy  FailurePolicy
	logger  *slog.Logger
}

// NewCoordinator creates a coordinator for the given graph and plan.
func NewCoordinator(graph *Graph, plan *Plan, execute ExecuteFunc, cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = NewCompleteAllPolicy(graph)
	}
	return &Coordinator{
		runID:   uuid.New(),
		graph:   graph,
		plan:    plan,
		execute: execute,
		cfg:     cfg,
		tracker: NewProgressTracker(graph.IDs()),
		policy:  policy,
		logger:  logger,
	}
}

// RunID returns the unique identifier assigned to this run.
func (c *Coordinator) RunID() uuid.UUID { return c.runID }

// Tracker returns the run's progress tracker. Safe to poll concurrently
// while the run executes.
func (c *Coordinator) Tracker() *ProgressTracker { return c.tracker }

// Run executes all batches and returns the final report.
//
// Execution errors never escape as returned errors; they are captured in the
// per-task results and their run-level consequence is determined by the
// failure policy. A non-nil error indicates an internal invariant violation,
// not a task failure.
func (c *Coordinator) Run(ctx context.Context) (*RunReport, error) {
	log := c.logger.With("run_id", c.runID)
	startedAt := time.Now()
	aborted := false

	log.Info("run started",
		"total_tasks", c.graph.Len(),
		"batches", len(c.plan.Batches))

	for bi, batch := range c.plan.Batches {
		if ctx.Err() != nil {
			if err := c.skipFromBatch(bi, context.Cause(ctx)); err != nil {
				return nil, err
			}
			aborted = true
			break
		}

		settled, err := c.runBatch(ctx, bi, batch)
		if err != nil {
			return nil, err
		}

		// Cancellation raised while the batch was in flight: tasks that were
		// already running have finished naturally and their real outcomes
		// are recorded; everything else is abandoned.
		if ctx.Err() != nil {
			if err := c.skipFromBatch(bi+1, context.Cause(ctx)); err != nil {
				return nil, err
			}
			log.Warn("run cancelled", "batch_index", bi, "cause", context.Cause(ctx))
			aborted = true
			break
		}

		decision := c.policy.OnBatchSettled(bi, settled)
		doomed := c.failedDependents(settled)
		for _, id := range decision.IDsToSkip {
			// Only tasks downstream of a failure are skipped because of it;
			// anything else in the skip set is collateral of abandoning the
			// run, and its recorded cause must say so.
			cause := ErrRunAborted
			if doomed[id] {
				cause = ErrDependencyFailed
			}
			if err := c.tracker.MarkSkipped(id, cause); err != nil {
				return nil, err
			}
		}
		if !decision.ContinueRun {
			log.Warn("run abandoned by failure policy", "batch_index", bi)
			aborted = true
			break
		}
	}

	report := c.buildReport(startedAt, aborted)
	log.Info("run finished",
		"status", report.Status,
		"total_duration", report.TotalDuration,
		"speedup_factor", report.SpeedupFactor)
	return report, nil
}

// runBatch dispatches one batch through a bounded worker pool and blocks
// until every member is terminal. It returns the terminal results of the
// batch members in batch order.
func (c *Coordinator) runBatch(ctx context.Context, batchIndex int, batch Batch) ([]TaskResult, error) {
	log := c.logger.With("run_id", c.runID, "batch_index", batchIndex)

	// Tasks already skipped by an earlier policy decision never run.
	runnable := make([]string, 0, len(batch))
	for _, id := range batch {
		status, _ := c.tracker.Status(id)
		if status.IsTerminal() {
			continue
		}
		if err := c.tracker.MarkReady(id); err != nil {
			return nil, err
		}
		runnable = append(runnable, id)
	}

	workers := len(runnable)
	if c.cfg.MaxConcurrencyPerBatch > 0 && workers > c.cfg.MaxConcurrencyPerBatch {
		workers = c.cfg.MaxConcurrencyPerBatch
	}

	log.Debug("batch started", "batch_size", len(batch), "workers", workers)

	if workers > 0 {
		taskCh := make(chan string)
		errCh := make(chan error, len(runnable))
		var wg sync.WaitGroup

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()
				for id := range taskCh {
					// Once cancellation is raised, not-yet-dispatched
					// tasks transition directly to Skipped.
					if ctx.Err() != nil {
						errCh <- c.tracker.MarkSkipped(id, context.Cause(ctx))
						continue
					}
					errCh <- c.runTask(ctx, id, workerID)
				}
			}(w)
		}

		for _, id := range runnable {
			taskCh <- id
		}
		close(taskCh)
		wg.Wait()
		close(errCh)

		for err := range errCh {
			if err != nil {
				return nil, err
			}
		}
	}

	results := c.tracker.Results()
	settled := make([]TaskResult, 0, len(batch))
	for _, id := range batch {
		r, ok := results[id]
		if !ok {
			return nil, errors.New("batch settled with non-terminal task " + id)
		}
		settled = append(settled, r)
	}
	return settled, nil
}

// runTask executes a single task through the callback and records its
// terminal outcome. The callback is invoked exactly once, by exactly one
// worker. Running tasks are never forcibly interrupted: the task context
// carries the per-task timeout but not the run's cancellation signal.
func (c *Coordinator) runTask(ctx context.Context, id string, workerID int) error {
	if err := c.tracker.RecordStart(id); err != nil {
		return err
	}

	log := c.logger.With("run_id", c.runID, "task_id", id, "worker_id", workerID)
	log.Debug("task started")

	desc, ok := c.graph.Descriptor(id)
	if !ok {
		return errors.New("no descriptor for task " + id)
	}

	taskCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if c.cfg.PerTaskTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(taskCtx, c.cfg.PerTaskTimeout)
	}
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- c.execute(taskCtx, desc.Payload)
	}()

	var execErr error
	if c.cfg.PerTaskTimeout > 0 {
		select {
		case execErr = <-done:
		case <-taskCtx.Done():
			execErr = &TimeoutError{TaskID: id, Timeout: c.cfg.PerTaskTimeout.String()}
		}
	} else {
		execErr = <-done
	}
	duration := time.Since(start)

	if execErr != nil {
		log.Info("task failed", "duration", duration, "error", execErr)
		return c.tracker.RecordResult(id, TaskStatusFailed, duration, execErr)
	}
	log.Debug("task completed", "duration", duration)
	return c.tracker.RecordResult(id, TaskStatusCompleted, duration, nil)
}

// failedDependents returns the ids of every task downstream of a failure in
// the settled batch.
func (c *Coordinator) failedDependents(settled []TaskResult) map[string]bool {
	out := make(map[string]bool)
	for _, r := range settled {
		if r.Status != TaskStatusFailed {
			continue
		}
		for _, id := range c.graph.TransitiveDependents(r.ID) {
			out[id] = true
		}
	}
	return out
}

// skipFromBatch marks every non-terminal task in the given batch and all
// later batches as Skipped.
func (c *Coordinator) skipFromBatch(batchIndex int, cause error) error {
	if cause == nil {
		cause = ErrRunAborted
	}
	for i := batchIndex; i < len(c.plan.Batches); i++ {
		for _, id := range c.plan.Batches[i] {
			if err := c.tracker.MarkSkipped(id, cause); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildReport assembles the final RunReport from the tracker state.
func (c *Coordinator) buildReport(startedAt time.Time, aborted bool) *RunReport {
	finishedAt := time.Now()
	results := c.tracker.Results()
	progress := c.tracker.Snapshot()

	var sequential time.Duration
	for _, r := range results {
		sequential += r.Duration
	}

	status := RunStatusCompleted
	switch {
	case aborted:
		status = RunStatusAborted
	case progress.Failed > 0 || progress.Skipped > 0:
		status = RunStatusCompletedWithFailures
	}

	total := finishedAt.Sub(startedAt)
	speedup := 0.0
	if total > 0 {
		speedup = float64(sequential) / float64(total)
	}

	return &RunReport{
		RunID:              c.runID,
		Status:             status,
		Tasks:              results,
		StartedAt:          startedAt,
		FinishedAt:         finishedAt,
		TotalDuration:      total,
		SequentialDuration: sequential,
		SpeedupFactor:      speedup,
	}
}

// Run validates the task list, plans batches and executes them in one call.
// Structural validation errors are returned before any execution starts and
// no report is produced for them.
func Run(ctx context.Context, tasks []TaskDescriptor, execute ExecuteFunc, cfg Config, logger *slog.Logger) (*RunReport, error) {
	graph, err := BuildGraph(tasks)
	if err != nil {
		return nil, err
	}
	plan := PlanBatches(graph)
	return NewCoordinator(graph, plan, execute, cfg, logger).Run(ctx)
}
