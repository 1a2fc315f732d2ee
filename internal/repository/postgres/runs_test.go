package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/domain/run"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/testsupport"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/workflow"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

func testRecord(t *testing.T, workflowName string) *run.Record {
	t.Helper()

	res := &workflow.Result{
		Workflow: workflowName,
		Status:   workflow.RunCompleted,
		Success:  true,
		Steps: map[string]*workflow.StepResult{
			"a": {StepID: "a", Status: workflow.StatusSucceeded, Output: "ok", Attempts: 1},
		},
		StartedAt: time.Now().Add(-time.Minute),
		Duration:  time.Minute,
	}

	steps, err := json.Marshal(res.Steps)
	require.NoError(t, err)

	return run.NewRecord(uuid.New(), res, steps)
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewRunRepository(testDB.Tx())
	ctx := context.Background()

	rec := testRecord(t, "pipeline")
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "pipeline", got.Workflow)
	assert.True(t, got.Success)
	assert.Equal(t, 1, got.StepCount)

	var steps map[string]*workflow.StepResult
	require.NoError(t, json.Unmarshal(got.Steps, &steps))
	assert.Equal(t, workflow.StatusSucceeded, steps["a"].Status)
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewRunRepository(testDB.Tx())

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRunRepository_ListRecent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewRunRepository(testDB.Tx())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, testRecord(t, "pipeline")))
	}
	require.NoError(t, repo.Create(ctx, testRecord(t, "other")))

	recs, err := repo.ListRecent(ctx, "pipeline", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	all, err := repo.ListRecent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := repo.ListRecent(ctx, "pipeline", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunRepository_DeleteOlderThan(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewRunRepository(testDB.Tx())
	ctx := context.Background()

	old := testRecord(t, "pipeline")
	old.ArchivedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(ctx, old))

	fresh := testRecord(t, "pipeline")
	require.NoError(t, repo.Create(ctx, fresh))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, old.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = repo.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
}
