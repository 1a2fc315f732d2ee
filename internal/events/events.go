package events

import "time"

// BaseEvent carries fields common to every published event
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStartedEvent is published when a workflow run is dispatched
type RunStartedEvent struct {
	BaseEvent
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	Steps    int    `json:"steps"`
}

// RunFinishedEvent is published when a run reaches a terminal state,
// covering both completed and aborted runs
type RunFinishedEvent struct {
	BaseEvent
	RunID      string `json:"run_id"`
	Workflow   string `json:"workflow"`
	Status     string `json:"status"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Steps      int    `json:"steps"`
	DurationMS int64  `json:"duration_ms"`
}

// StepFailedEvent is published for each step that ran and failed
type StepFailedEvent struct {
	BaseEvent
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	StepID   string `json:"step_id"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

// RetentionEvent is published after an archive cleanup pass
type RetentionEvent struct {
	BaseEvent
	Deleted int64     `json:"deleted"`
	Cutoff  time.Time `json:"cutoff"`
}
