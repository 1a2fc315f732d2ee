package run

import (
	"time"

	"github.com/google/uuid"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/workflow"
)

// Record is an archived workflow execution.
type Record struct {
	ID       uuid.UUID `db:"id"`
	Workflow string    `db:"workflow"`

	Status  string `db:"status"`
	Success bool   `db:"success"`
	Error   string `db:"error"`

	// Per-step results serialized as JSON
	Steps     []byte `db:"steps"`
	StepCount int    `db:"step_count"`

	StartedAt  time.Time     `db:"started_at"`
	Duration   time.Duration `db:"duration"`
	ArchivedAt time.Time     `db:"archived_at"`
}

// NewRecord builds an archive record from an execution result.
func NewRecord(id uuid.UUID, res *workflow.Result, steps []byte) *Record {
	return &Record{
		ID:         id,
		Workflow:   res.Workflow,
		Status:     string(res.Status),
		Success:    res.Success,
		Error:      res.Error,
		Steps:      steps,
		StepCount:  len(res.Steps),
		StartedAt:  res.StartedAt,
		Duration:   res.Duration,
		ArchivedAt: time.Now(),
	}
}
