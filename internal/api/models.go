package api

import (
	"time"

	"github.com/phrazzld/dagrun/internal/sched"
	"github.com/phrazzld/dagrun/internal/store"
)

// ErrorResponse is the body returned for any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProgressResponse reports live counters for an in-flight or finished run.
type ProgressResponse struct {
	RunID    string         `json:"run_id"`
	Progress sched.Progress `json:"progress"`
	Terminal bool           `json:"terminal"`
}

// TaskResponse is one persisted task outcome in a run report.
type TaskResponse struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunResponse is a persisted run report.
type RunResponse struct {
	RunID                string         `json:"run_id"`
	Status               string         `json:"status"`
	StartedAt            time.Time      `json:"started_at"`
	FinishedAt           time.Time      `json:"finished_at"`
	TotalDurationMs      int64          `json:"total_duration_ms"`
	SequentialDurationMs int64          `json:"sequential_duration_ms"`
	SpeedupFactor        float64        `json:"speedup_factor"`
	Tasks                []TaskResponse `json:"tasks,omitempty"`
}

// newRunResponse maps a stored run record to its API shape.
func newRunResponse(record *store.RunRecord) RunResponse {
	resp := RunResponse{
		RunID:                record.ID.String(),
		Status:               string(record.Status),
		StartedAt:            record.StartedAt,
		FinishedAt:           record.FinishedAt,
		TotalDurationMs:      record.TotalDuration.Milliseconds(),
		SequentialDurationMs: record.SequentialDuration.Milliseconds(),
		SpeedupFactor:        record.SpeedupFactor,
	}
	for _, task := range record.Tasks {
		resp.Tasks = append(resp.Tasks, TaskResponse{
			TaskID:     task.TaskID,
			Status:     string(task.Status),
			DurationMs: task.Duration.Milliseconds(),
			Error:      task.Error,
		})
	}
	return resp
}
