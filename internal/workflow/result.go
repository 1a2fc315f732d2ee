package workflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepStatus is the lifecycle state of a single step within one execution.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// Terminal reports whether the status is final. A terminal step result is
// never mutated again.
func (s StepStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// RunStatus is the terminal state of a whole workflow execution.
type RunStatus string

const (
	// RunCompleted means every step reached a terminal status.
	RunCompleted RunStatus = "completed"

	// RunAborted means the orchestration itself broke: graph validation
	// failed or an internal invariant was violated. Never used for ordinary
	// step failures.
	RunAborted RunStatus = "aborted"
)

// StepResult is produced exactly once per step per execution.
type StepResult struct {
	StepID   string
	Status   StepStatus
	Output   interface{}
	Error    string
	Attempts int
	Duration time.Duration
}

// Result aggregates all step results for one execution.
type Result struct {
	Workflow  string
	Status    RunStatus
	Success   bool
	Error     string
	Steps     map[string]*StepResult
	StartedAt time.Time
	Duration  time.Duration
}

// FailedSteps returns the ids of steps that ran and failed.
func (r *Result) FailedSteps() []string {
	var out []string
	for id, sr := range r.Steps {
		if sr.Status == StatusFailed {
			out = append(out, id)
		}
	}
	return out
}

// Step returns the result recorded for one step.
func (r *Result) Step(id string) (*StepResult, bool) {
	sr, ok := r.Steps[id]
	return sr, ok
}

// ToMap renders the result as a nested mapping of JSON-compatible values,
// suitable for an API response or a log sink. Step outputs the JSON encoder
// cannot represent are rendered as strings instead.
func (r *Result) ToMap() map[string]interface{} {
	steps := make(map[string]interface{}, len(r.Steps))
	for id, sr := range r.Steps {
		steps[id] = map[string]interface{}{
			"status":      string(sr.Status),
			"output":      encodableOutput(sr.Output),
			"error":       sr.Error,
			"attempts":    sr.Attempts,
			"duration_ms": sr.Duration.Milliseconds(),
		}
	}

	return map[string]interface{}{
		"workflow":    r.Workflow,
		"status":      string(r.Status),
		"success":     r.Success,
		"error":       r.Error,
		"steps":       steps,
		"started_at":  r.StartedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms": r.Duration.Milliseconds(),
	}
}

// encodableOutput passes a capability output through unless the JSON encoder
// rejects it (channels, functions, cyclic values).
func encodableOutput(output interface{}) interface{} {
	switch output.(type) {
	case nil, string, bool, int, int64, float64:
		return output
	}
	if _, err := json.Marshal(output); err != nil {
		return fmt.Sprintf("%v", output)
	}
	return output
}
