package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/dagrun/internal/sched"
)

// RunRecord is a persisted run report as read back from storage.
type RunRecord struct {
	ID                 uuid.UUID
	Status             sched.RunStatus
	StartedAt          time.Time
	FinishedAt         time.Time
	TotalDuration      time.Duration
	SequentialDuration time.Duration
	SpeedupFactor      float64
	Tasks              []TaskRecord
}

// TaskRecord is a single persisted task outcome belonging to a run.
type TaskRecord struct {
	RunID    uuid.UUID
	TaskID   string
	Status   sched.TaskStatus
	Duration time.Duration

	// Error holds the task's failure or skip cause as text. Empty for
	// completed tasks.
	Error string
}

// RunStore persists run reports and reads them back.
type RunStore interface {
	// SaveReport persists a finished run and all of its task outcomes
	// atomically. Returns ErrDuplicate if the run ID already exists.
	SaveReport(ctx context.Context, report *sched.RunReport) error

	// GetRun returns a previously saved run with its task records, or
	// ErrRunNotFound.
	GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first, without task
	// records.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
