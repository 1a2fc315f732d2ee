package workers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rundomain "github.com/Aparnap2/agentflow-pro-sub002/internal/domain/run"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

type stubRunRepo struct {
	deleted  int64
	lastCut  time.Time
	failWith error
}

func (r *stubRunRepo) Create(ctx context.Context, rec *rundomain.Record) error { return nil }

func (r *stubRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*rundomain.Record, error) {
	return nil, errors.ErrNotFound
}

func (r *stubRunRepo) ListRecent(ctx context.Context, workflow string, limit int) ([]rundomain.Record, error) {
	return nil, nil
}

func (r *stubRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	r.lastCut = cutoff
	return r.deleted, nil
}

func TestRetentionWorker_Run(t *testing.T) {
	repo := &stubRunRepo{deleted: 7}
	w := NewRetentionWorker(repo, nil, time.Hour, 24*time.Hour, true)

	require.NoError(t, w.Run(context.Background()))

	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), repo.lastCut, time.Second)

	h := w.Health()
	assert.Equal(t, int64(1), h.RunCount)
	assert.Equal(t, int64(0), h.ErrorCount)
}

func TestRetentionWorker_RunError(t *testing.T) {
	repo := &stubRunRepo{failWith: errors.ErrUnavailable}
	w := NewRetentionWorker(repo, nil, time.Hour, 24*time.Hour, true)

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))

	h := w.Health()
	assert.Equal(t, int64(1), h.ErrorCount)
}
