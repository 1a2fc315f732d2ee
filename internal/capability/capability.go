package capability

import (
	"context"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

// Capability is a named, invokable unit of work (agent task or tool) with
// uniform success/failure semantics. Implementations must be safe for
// concurrent invocation and must not keep per-invocation state.
type Capability interface {
	// Name returns the unique capability identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// Invoke performs the capability's action using the provided parameters.
	Invoke(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// HandlerFunc is the function signature for capability handlers.
type HandlerFunc func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Func is a simple Capability implementation backed by a handler function.
type Func struct {
	name        string
	description string
	handler     HandlerFunc
}

// New creates a new function-backed Capability.
func New(name, description string, handler HandlerFunc) *Func {
	return &Func{
		name:        name,
		description: description,
		handler:     handler,
	}
}

// Name returns the capability identifier.
func (f *Func) Name() string { return f.name }

// Description returns a human description of the capability.
func (f *Func) Description() string { return f.description }

// Invoke runs the underlying handler.
func (f *Func) Invoke(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if f.handler == nil {
		return nil, errors.New("capability handler is not defined")
	}

	return f.handler(ctx, params)
}

// Outcome is the registry's uniform invocation result. Metadata always
// carries the invoked capability's name so callers can log and measure
// uniformly regardless of which capability ran.
type Outcome struct {
	Success  bool
	Output   interface{}
	Error    error
	Metadata map[string]interface{}
}
