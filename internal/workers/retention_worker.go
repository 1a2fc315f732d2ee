package workers

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	rundomain "github.com/Aparnap2/agentflow-pro-sub002/internal/domain/run"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/events"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

// RetentionWorker deletes archived runs older than the retention window
type RetentionWorker struct {
	*BaseWorker
	repo      rundomain.Repository
	publisher *events.Publisher
	ttl       time.Duration
}

// NewRetentionWorker creates a retention worker. The publisher may be nil.
func NewRetentionWorker(repo rundomain.Repository, publisher *events.Publisher, interval, ttl time.Duration, enabled bool) *RetentionWorker {
	return &RetentionWorker{
		BaseWorker: NewBaseWorker("run_retention", interval, enabled),
		repo:       repo,
		publisher:  publisher,
		ttl:        ttl,
	}
}

// Run removes expired run records in one pass
func (w *RetentionWorker) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := start.Add(-w.ttl)

	deleted, err := w.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return errors.Wrap(err, "run retention pass failed")
	}

	w.RecordRun(time.Since(start))

	if deleted > 0 {
		w.Log().Infow("Deleted expired run records",
			"deleted", deleted,
			"cutoff", humanize.Time(cutoff),
		)
		w.publisher.PublishRetention(ctx, deleted, cutoff)
	}

	return nil
}
