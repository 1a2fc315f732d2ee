package kafka

// Topic definitions for workflow event streaming
const (
	// Run lifecycle events
	TopicRunStarted   = "workflows.runs.started"
	TopicRunCompleted = "workflows.runs.completed"
	TopicRunAborted   = "workflows.runs.aborted"

	// Step events
	TopicStepFailed = "workflows.steps.failed"

	// Maintenance events
	TopicRetention = "workflows.retention"
)
