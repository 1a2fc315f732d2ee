package capability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/logger"
)

// Registry stores capabilities by name for discovery and lookup. It is safe
// for concurrent use: lookups take a read lock, registration a write lock.
type Registry struct {
	capabilities map[string]Capability
	mu           sync.RWMutex
	log          *logger.Logger
}

// NewRegistry constructs an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[string]Capability),
		log:          logger.Get().With("component", "capability_registry"),
	}
}

// Register adds or replaces a capability under the provided name.
// Re-registering an existing name overwrites it with a warning.
func (r *Registry) Register(name string, c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.capabilities[name]; exists {
		r.log.Warnf("Overwriting already registered capability %q", name)
	}
	r.capabilities[name] = c
}

// Get retrieves a capability by name if registered. Absence is not an error.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[name]
	return c, ok
}

// Remove deletes a capability and reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.capabilities[name]
	delete(r.capabilities, name)
	return ok
}

// List returns the names of all registered capabilities, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.capabilities)
}

// Clear removes all registered capabilities.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities = make(map[string]Capability)
}

// Invoke looks up a capability and runs it, converting every failure mode
// (missing capability, returned error, panic) into a failure Outcome. A
// capability's failure never propagates as an unhandled fault to the caller.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]interface{}) Outcome {
	outcome := Outcome{
		Metadata: map[string]interface{}{"capability": name},
	}

	c, ok := r.Get(name)
	if !ok {
		outcome.Error = errors.Wrapf(errors.ErrCapabilityNotFound, "%q", name)
		return outcome
	}

	start := time.Now()
	output, err := r.invokeRecovered(ctx, c, params)
	outcome.Metadata["duration"] = time.Since(start).String()

	if err != nil {
		r.log.Debugf("Capability %s failed: %v", name, err)
		outcome.Error = err
		return outcome
	}

	outcome.Success = true
	outcome.Output = output
	return outcome
}

// invokeRecovered runs the capability with panic recovery.
func (r *Registry) invokeRecovered(ctx context.Context, c Capability, params map[string]interface{}) (output interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Wrapf(errors.ErrCapabilityPanic, "%v", rec)
			r.log.Errorf("Capability panic recovered: %v", rec)
		}
	}()

	if ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), "context cancelled before invocation")
	}

	return c.Invoke(ctx, params)
}
