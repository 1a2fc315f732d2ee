package workflow

import (
	"context"
	"time"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/capability"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/metrics"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/logger"
)

// Reserved parameter keys merged into every invocation.
const (
	// ParamInput carries the rendered input template.
	ParamInput = "input"

	// ParamWorkflowInput carries the caller-supplied workflow input.
	ParamWorkflowInput = "workflow_input"
)

// Limits are engine-wide bounds applied on top of each step's own policy.
type Limits struct {
	// DefaultStepTimeout applies to steps that declare no timeout of their
	// own. Zero leaves such steps unbounded.
	DefaultStepTimeout time.Duration

	// MaxAttempts caps every step's retry policy. Zero means no cap.
	MaxAttempts int
}

// Executor runs a single step: renders its input, invokes the capability
// through the registry, and applies the step's retry and timeout policy
// within the engine limits.
type Executor struct {
	registry *capability.Registry
	limits   Limits
	log      *logger.Logger
}

// NewExecutor creates a step executor bound to a capability registry.
func NewExecutor(registry *capability.Registry) *Executor {
	return NewExecutorWithLimits(registry, Limits{})
}

// NewExecutorWithLimits creates a step executor that enforces engine-wide
// bounds on step timeouts and retry policies.
func NewExecutorWithLimits(registry *capability.Registry, limits Limits) *Executor {
	return &Executor{
		registry: registry,
		limits:   limits,
		log:      logger.Get().With("component", "step_executor"),
	}
}

// Run executes one step against the terminal results of its dependencies.
//
// The returned error is non-nil only for an internal invariant violation
// (an unresolved template reference, meaning dependency ordering was broken);
// the caller must abort the whole run in that case. Every ordinary failure is
// captured in the returned StepResult instead.
func (e *Executor) Run(ctx context.Context, step *Step, results map[string]*StepResult, workflowInput map[string]interface{}) (*StepResult, error) {
	res := &StepResult{StepID: step.ID, Status: StatusRunning}
	start := time.Now()

	params := e.buildParams(step, workflowInput)

	if step.InputTemplate != "" {
		rendered, err := RenderTemplate(step.InputTemplate, results)
		if errors.Is(err, errors.ErrUnresolvedReference) {
			wrapped := errors.Wrapf(err, "step %q", step.ID)
			res.Status = StatusFailed
			res.Error = wrapped.Error()
			res.Duration = time.Since(start)
			return res, wrapped
		}
		if err != nil {
			// Template failure is deterministic, so it is not retried
			e.log.Warnf("Step %s template rendering failed: %v", step.ID, err)
			res.Status = StatusFailed
			res.Error = err.Error()
			res.Attempts = 0
			res.Duration = time.Since(start)
			metrics.RecordStepExecution(step.Capability, string(res.Status), res.Duration, res.Attempts)
			return res, nil
		}
		params[ParamInput] = rendered
	}

	maxAttempts := step.Retry.attempts()
	if e.limits.MaxAttempts > 0 && maxAttempts > e.limits.MaxAttempts {
		maxAttempts = e.limits.MaxAttempts
	}
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = errors.Wrap(errors.ErrExecutionCancelled, ctx.Err().Error())
			break
		}

		res.Attempts = attempt
		outcome := e.invokeOnce(ctx, step, params)

		if outcome.Success {
			res.Status = StatusSucceeded
			res.Output = outcome.Output
			res.Duration = time.Since(start)
			e.log.Debugf("Step %s succeeded (attempt %d/%d, duration: %s)",
				step.ID, attempt, maxAttempts, res.Duration)
			metrics.RecordStepExecution(step.Capability, string(res.Status), res.Duration, res.Attempts)
			return res, nil
		}

		lastErr = outcome.Error
		if attempt < maxAttempts {
			e.log.Debugf("Step %s attempt %d/%d failed, retrying: %v",
				step.ID, attempt, maxAttempts, outcome.Error)
			if !e.waitBackoff(ctx, step, attempt) {
				lastErr = errors.Wrap(errors.ErrExecutionCancelled, "cancelled during backoff")
				break
			}
		}
	}

	res.Status = StatusFailed
	if lastErr != nil {
		res.Error = lastErr.Error()
	}
	res.Duration = time.Since(start)
	e.log.Warnf("Step %s failed after %d attempt(s): %v (duration: %s)",
		step.ID, res.Attempts, lastErr, res.Duration)
	metrics.RecordStepExecution(step.Capability, string(res.Status), res.Duration, res.Attempts)
	return res, nil
}

// buildParams copies the step's static parameters and merges the workflow
// input under its reserved key. The step's own map is never mutated.
func (e *Executor) buildParams(step *Step, workflowInput map[string]interface{}) map[string]interface{} {
	params := make(map[string]interface{}, len(step.Parameters)+2)
	for k, v := range step.Parameters {
		params[k] = v
	}
	if workflowInput != nil {
		params[ParamWorkflowInput] = workflowInput
	}
	return params
}

// invokeOnce performs a single invocation attempt, abandoning it once the
// step timeout elapses even when the capability ignores its context.
func (e *Executor) invokeOnce(ctx context.Context, step *Step, params map[string]interface{}) capability.Outcome {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.limits.DefaultStepTimeout
	}
	if timeout <= 0 {
		out := e.registry.Invoke(ctx, step.Capability, params)
		metrics.RecordCapabilityInvocation(step.Capability, out.Error)
		return out
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan capability.Outcome, 1)
	go func() {
		done <- e.registry.Invoke(attemptCtx, step.Capability, params)
	}()

	select {
	case out := <-done:
		metrics.RecordCapabilityInvocation(step.Capability, out.Error)
		return out
	case <-attemptCtx.Done():
		// The invocation goroutine may still be running; its late result is
		// dropped via the buffered channel.
		var err error
		if ctx.Err() != nil {
			err = errors.Wrap(errors.ErrExecutionCancelled, ctx.Err().Error())
		} else {
			err = errors.Wrapf(errors.ErrAttemptTimeout, "after %s", timeout)
		}
		metrics.RecordCapabilityInvocation(step.Capability, err)
		return capability.Outcome{
			Error:    err,
			Metadata: map[string]interface{}{"capability": step.Capability},
		}
	}
}

// waitBackoff sleeps the policy's delay before the next attempt. Returns
// false if the context was cancelled while waiting.
func (e *Executor) waitBackoff(ctx context.Context, step *Step, attempt int) bool {
	if step.Retry.Backoff == nil {
		return ctx.Err() == nil
	}

	delay := step.Retry.Backoff(attempt)
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
