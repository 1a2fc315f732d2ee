package capability

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

// RateLimitedCapability wraps a capability with a token-bucket limiter so a
// workflow cannot hammer an upstream API faster than it allows.
type RateLimitedCapability struct {
	inner   Capability
	limiter *rate.Limiter
}

// RateLimited wraps a capability with a per-minute request budget.
// requestsPerMinute: maximum number of invocations allowed per minute.
func RateLimited(inner Capability, requestsPerMinute int) *RateLimitedCapability {
	rps := float64(requestsPerMinute) / 60.0

	// Allow burst of 10% of per-minute limit
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &RateLimitedCapability{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the wrapped capability's identifier.
func (c *RateLimitedCapability) Name() string { return c.inner.Name() }

// Description returns the wrapped capability's description.
func (c *RateLimitedCapability) Description() string { return c.inner.Description() }

// Invoke blocks until the limiter admits the call, then delegates. A context
// cancelled while waiting surfaces as the invocation error.
func (c *RateLimitedCapability) Invoke(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "rate limiter %s", c.inner.Name())
	}

	return c.inner.Invoke(ctx, params)
}

// Allow reports whether an invocation would be admitted without blocking.
func (c *RateLimitedCapability) Allow() bool {
	return c.limiter.Allow()
}
