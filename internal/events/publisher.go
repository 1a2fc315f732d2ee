package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/kafka"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/workflow"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/logger"
)

// producer abstracts the Kafka producer for testing
type producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes run lifecycle events to Kafka. A nil Publisher is
// valid and publishes nothing, so callers need no guards when Kafka is
// disabled.
type Publisher struct {
	producer producer
	source   string
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(p *kafka.Producer, source string) *Publisher {
	return &Publisher{
		producer: p,
		source:   source,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

func (p *Publisher) base() BaseEvent {
	return BaseEvent{
		EventID:   uuid.NewString(),
		Source:    p.source,
		Timestamp: time.Now().UTC(),
	}
}

// PublishRunStarted publishes a run started event
func (p *Publisher) PublishRunStarted(ctx context.Context, runID, workflowName string, steps int) {
	if p == nil {
		return
	}
	p.publish(ctx, kafka.TopicRunStarted, workflowName, RunStartedEvent{
		BaseEvent: p.base(),
		RunID:     runID,
		Workflow:  workflowName,
		Steps:     steps,
	})
}

// PublishRunFinished publishes the terminal event for a run, choosing the
// topic by the run's outcome, and a step failed event for every step that
// ran and failed.
func (p *Publisher) PublishRunFinished(ctx context.Context, runID string, res *workflow.Result) {
	if p == nil {
		return
	}

	topic := kafka.TopicRunCompleted
	if res.Status == workflow.RunAborted {
		topic = kafka.TopicRunAborted
	}

	p.publish(ctx, topic, res.Workflow, RunFinishedEvent{
		BaseEvent:  p.base(),
		RunID:      runID,
		Workflow:   res.Workflow,
		Status:     string(res.Status),
		Success:    res.Success,
		Error:      res.Error,
		Steps:      len(res.Steps),
		DurationMS: res.Duration.Milliseconds(),
	})

	for _, id := range res.FailedSteps() {
		sr, ok := res.Step(id)
		if !ok {
			continue
		}
		p.publish(ctx, kafka.TopicStepFailed, res.Workflow, StepFailedEvent{
			BaseEvent: p.base(),
			RunID:     runID,
			Workflow:  res.Workflow,
			StepID:    sr.StepID,
			Error:     sr.Error,
			Attempts:  sr.Attempts,
		})
	}
}

// PublishRetention publishes an archive cleanup event
func (p *Publisher) PublishRetention(ctx context.Context, deleted int64, cutoff time.Time) {
	if p == nil {
		return
	}
	p.publish(ctx, kafka.TopicRetention, "retention", RetentionEvent{
		BaseEvent: p.base(),
		Deleted:   deleted,
		Cutoff:    cutoff,
	})
}

// publish delivers one event, logging failures instead of surfacing them.
// Event delivery never blocks or fails a workflow run.
func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) {
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Warnf("Failed to publish event to %s: %v", topic, err)
	}
}
