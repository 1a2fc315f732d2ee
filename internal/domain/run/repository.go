package run

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines run archive persistence operations
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListRecent(ctx context.Context, workflow string, limit int) ([]Record, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
