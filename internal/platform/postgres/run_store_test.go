package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/dagrun/internal/platform/postgres"
	"github.com/phrazzld/dagrun/internal/sched"
	"github.com/phrazzld/dagrun/internal/store"
)

// testDB opens the database named by DAGRUN_TEST_DB_URL and applies
// migrations, or skips the test when no database is configured.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("DAGRUN_TEST_DB_URL")
	if url == "" {
		t.Skip("DAGRUN_TEST_DB_URL not set; skipping database integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Ping())
	require.NoError(t, postgres.MigrateUp(db))

	_, err = db.Exec("TRUNCATE runs CASCADE")
	require.NoError(t, err)

	return db
}

func sampleReport() *sched.RunReport {
	started := time.Now().Add(-time.Second).UTC().Truncate(time.Millisecond)
	return &sched.RunReport{
		RunID:  uuid.New(),
		Status: sched.RunStatusCompletedWithFailures,
		Tasks: map[string]sched.TaskResult{
			"build": {ID: "build", Status: sched.TaskStatusCompleted, Duration: 120 * time.Millisecond},
			"test":  {ID: "test", Status: sched.TaskStatusFailed, Duration: 40 * time.Millisecond, Err: errors.New("exit status 1")},
			"pack":  {ID: "pack", Status: sched.TaskStatusSkipped, Err: sched.ErrDependencyFailed},
		},
		StartedAt:          started,
		FinishedAt:         started.Add(200 * time.Millisecond),
		TotalDuration:      200 * time.Millisecond,
		SequentialDuration: 160 * time.Millisecond,
		SpeedupFactor:      0.8,
	}
}

func TestRunStore_SaveAndGet(t *testing.T) {
	db := testDB(t)
	s := postgres.NewRunStore(db)
	ctx := context.Background()

	report := sampleReport()
	require.NoError(t, s.SaveReport(ctx, report))

	record, err := s.GetRun(ctx, report.RunID)
	require.NoError(t, err)

	assert.Equal(t, report.RunID, record.ID)
	assert.Equal(t, sched.RunStatusCompletedWithFailures, record.Status)
	assert.Equal(t, 200*time.Millisecond, record.TotalDuration)
	assert.Equal(t, 160*time.Millisecond, record.SequentialDuration)
	assert.InDelta(t, 0.8, record.SpeedupFactor, 1e-9)

	require.Len(t, record.Tasks, 3)
	byID := make(map[string]store.TaskRecord)
	for _, task := range record.Tasks {
		byID[task.TaskID] = task
	}
	assert.Equal(t, sched.TaskStatusCompleted, byID["build"].Status)
	assert.Empty(t, byID["build"].Error)
	assert.Equal(t, sched.TaskStatusFailed, byID["test"].Status)
	assert.Equal(t, "exit status 1", byID["test"].Error)
	assert.Equal(t, sched.TaskStatusSkipped, byID["pack"].Status)
	assert.Contains(t, byID["pack"].Error, "dependency failed")
}

func TestRunStore_DuplicateRun(t *testing.T) {
	db := testDB(t)
	s := postgres.NewRunStore(db)
	ctx := context.Background()

	report := sampleReport()
	require.NoError(t, s.SaveReport(ctx, report))

	err := s.SaveReport(ctx, report)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestRunStore_GetMissingRun(t *testing.T) {
	db := testDB(t)
	s := postgres.NewRunStore(db)

	_, err := s.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestRunStore_ListRuns(t *testing.T) {
	db := testDB(t)
	s := postgres.NewRunStore(db)
	ctx := context.Background()

	first := sampleReport()
	second := sampleReport()
	second.StartedAt = first.StartedAt.Add(time.Minute)
	second.FinishedAt = second.StartedAt.Add(100 * time.Millisecond)

	require.NoError(t, s.SaveReport(ctx, first))
	require.NoError(t, s.SaveReport(ctx, second))

	records, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first, no task records attached.
	assert.Equal(t, second.RunID, records[0].ID)
	assert.Equal(t, first.RunID, records[1].ID)
	assert.Empty(t, records[0].Tasks)
}
