package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/domain/run"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/metrics"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

// Compile-time check
var _ run.Repository = (*RunRepository)(nil)

// RunRepository implements run.Repository using sqlx
type RunRepository struct {
	db DBTX
}

// NewRunRepository creates a new run archive repository
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record
func (r *RunRepository) Create(ctx context.Context, rec *run.Record) error {
	query := `
		INSERT INTO workflow_runs (
			id, workflow, status, success, error,
			steps, step_count, started_at, duration, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Workflow, rec.Status, rec.Success, rec.Error,
		rec.Steps, rec.StepCount, rec.StartedAt, rec.Duration, rec.ArchivedAt,
	)
	metrics.RecordDBQuery("postgres", "insert_run", err)
	if err != nil {
		return errors.Wrapf(err, "failed to insert run %s", rec.ID)
	}
	return nil
}

// GetByID retrieves a run record by ID
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*run.Record, error) {
	var rec run.Record

	query := `SELECT * FROM workflow_runs WHERE id = $1`

	err := r.db.GetContext(ctx, &rec, query, id)
	metrics.RecordDBQuery("postgres", "get_run", err)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get run %s", id)
	}

	return &rec, nil
}

// ListRecent retrieves the most recent runs for a workflow. An empty
// workflow name lists runs across all workflows.
func (r *RunRepository) ListRecent(ctx context.Context, workflow string, limit int) ([]run.Record, error) {
	var recs []run.Record

	var err error
	if workflow == "" {
		query := `
			SELECT * FROM workflow_runs
			ORDER BY started_at DESC
			LIMIT $1`
		err = r.db.SelectContext(ctx, &recs, query, limit)
	} else {
		query := `
			SELECT * FROM workflow_runs
			WHERE workflow = $1
			ORDER BY started_at DESC
			LIMIT $2`
		err = r.db.SelectContext(ctx, &recs, query, workflow, limit)
	}
	metrics.RecordDBQuery("postgres", "list_runs", err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}

	return recs, nil
}

// DeleteOlderThan removes run records archived before the cutoff
func (r *RunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM workflow_runs WHERE archived_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	metrics.RecordDBQuery("postgres", "delete_old_runs", err)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete old runs")
	}

	return res.RowsAffected()
}
