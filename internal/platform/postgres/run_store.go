// Package postgres implements the store interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/phrazzld/dagrun/internal/platform/logger"
	"github.com/phrazzld/dagrun/internal/sched"
	"github.com/phrazzld/dagrun/internal/store"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint violations.
const uniqueViolationCode = "23505"

// RunStore implements store.RunStore using a PostgreSQL database. All query
// paths go through store.DBTX, so reads run against the pooled connection and
// writes against the transaction handle interchangeably.
type RunStore struct {
	db *sql.DB
}

var _ store.RunStore = (*RunStore)(nil)

// NewRunStore creates a new PostgreSQL run store.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// SaveReport persists the run row and all of its task rows in a single
// transaction.
func (s *RunStore) SaveReport(ctx context.Context, report *sched.RunReport) error {
	log := logger.FromContext(ctx).With("run_id", report.RunID)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return insertReport(ctx, tx, report)
	})
	if err != nil {
		return err
	}

	log.Debug("run report persisted", "tasks", len(report.Tasks))
	return nil
}

// insertReport writes the run row and its task rows through q.
func insertReport(ctx context.Context, q store.DBTX, report *sched.RunReport) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO runs (id, status, started_at, finished_at,
			total_duration_ms, sequential_duration_ms, speedup_factor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.RunID,
		string(report.Status),
		report.StartedAt.UTC(),
		report.FinishedAt.UTC(),
		report.TotalDuration.Milliseconds(),
		report.SequentialDuration.Milliseconds(),
		report.SpeedupFactor,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: run %s", store.ErrDuplicate, report.RunID)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}

	// Deterministic insert order keeps the rows readable in psql.
	ids := make([]string, 0, len(report.Tasks))
	for id := range report.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		result := report.Tasks[id]
		errText := ""
		if result.Err != nil {
			errText = result.Err.Error()
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO run_tasks (run_id, task_id, status, duration_ms, error)
			VALUES ($1, $2, $3, $4, $5)`,
			report.RunID,
			id,
			string(result.Status),
			result.Duration.Milliseconds(),
			errText,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", id, err)
		}
	}
	return nil
}

// GetRun returns a saved run with its task records.
func (s *RunStore) GetRun(ctx context.Context, id uuid.UUID) (*store.RunRecord, error) {
	return getRunRecord(ctx, s.db, id)
}

func getRunRecord(ctx context.Context, q store.DBTX, id uuid.UUID) (*store.RunRecord, error) {
	var (
		record       store.RunRecord
		totalMs      int64
		sequentialMs int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, status, started_at, finished_at,
			total_duration_ms, sequential_duration_ms, speedup_factor
		FROM runs WHERE id = $1`, id).
		Scan(&record.ID, &record.Status, &record.StartedAt, &record.FinishedAt,
			&totalMs, &sequentialMs, &record.SpeedupFactor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	record.TotalDuration = time.Duration(totalMs) * time.Millisecond
	record.SequentialDuration = time.Duration(sequentialMs) * time.Millisecond

	rows, err := q.QueryContext(ctx, `
		SELECT run_id, task_id, status, duration_ms, error
		FROM run_tasks WHERE run_id = $1 ORDER BY task_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			task       store.TaskRecord
			durationMs int64
		)
		if err := rows.Scan(&task.RunID, &task.TaskID, &task.Status, &durationMs, &task.Error); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		task.Duration = time.Duration(durationMs) * time.Millisecond
		record.Tasks = append(record.Tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}

	return &record, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	return listRunRecords(ctx, s.db, limit)
}

func listRunRecords(ctx context.Context, q store.DBTX, limit int) ([]store.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, status, started_at, finished_at,
			total_duration_ms, sequential_duration_ms, speedup_factor
		FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []store.RunRecord
	for rows.Next() {
		var (
			record       store.RunRecord
			totalMs      int64
			sequentialMs int64
		)
		if err := rows.Scan(&record.ID, &record.Status, &record.StartedAt, &record.FinishedAt,
			&totalMs, &sequentialMs, &record.SpeedupFactor); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		record.TotalDuration = time.Duration(totalMs) * time.Millisecond
		record.SequentialDuration = time.Duration(sequentialMs) * time.Millisecond
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run rows: %w", err)
	}

	return records, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
