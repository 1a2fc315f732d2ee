package workflow

import (
	"time"
)

// BackoffFunc computes the delay before the next retry. attempt is the
// 1-based number of the attempt that just failed.
type BackoffFunc func(attempt int) time.Duration

// FixedBackoff waits the same delay between every retry.
func FixedBackoff(delay time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return delay
	}
}

// ExponentialBackoff doubles the delay after each failed attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		delay := base
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay >= max {
				return max
			}
		}
		if delay > max {
			return max
		}
		return delay
	}
}

// RetryPolicy controls how many invocation attempts a step gets and how long
// to wait between them. A nil Backoff retries immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// attempts normalizes MaxAttempts to at least one.
func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Step is the declarative description of one unit of work in a graph.
type Step struct {
	// ID uniquely identifies the step within its graph.
	ID string

	// Name is a human-readable label.
	Name string

	// Capability names the registered capability to invoke. Resolution
	// happens at dispatch time, so capabilities may be registered after the
	// graph was built.
	Capability string

	// Parameters are static values merged into every invocation.
	Parameters map[string]interface{}

	// InputTemplate optionally references prior step results via
	// {{step_id.field}} placeholders; rendered immediately before invocation.
	InputTemplate string

	// DependsOn lists step ids that must reach a terminal state first.
	DependsOn []string

	// Retry is the step's attempt budget and backoff shape.
	Retry RetryPolicy

	// Timeout bounds each invocation attempt; zero means no limit.
	Timeout time.Duration
}
