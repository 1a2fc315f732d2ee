package workflow

import (
	"strings"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

// Graph is a named, ordered collection of steps. It is built incrementally
// and validated once before execution; it is not safe for concurrent
// mutation.
type Graph struct {
	Name string

	steps     []*Step
	index     map[string]*Step
	validated bool
}

// NewGraph constructs an empty workflow graph.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:  name,
		index: make(map[string]*Step),
	}
}

// AddStep appends a step to the graph. Adding invalidates any prior
// successful Validate.
func (g *Graph) AddStep(s *Step) error {
	if s == nil {
		return errors.Wrap(errors.ErrInvalidInput, "step is nil")
	}
	if strings.TrimSpace(s.ID) == "" {
		return errors.Wrap(errors.ErrInvalidInput, "step id is required")
	}
	if strings.TrimSpace(s.Capability) == "" {
		return errors.Wrapf(errors.ErrInvalidInput, "step %q: capability is required", s.ID)
	}
	if _, exists := g.index[s.ID]; exists {
		return errors.Wrapf(errors.ErrDuplicateStep, "%q", s.ID)
	}

	g.steps = append(g.steps, s)
	g.index[s.ID] = s
	g.validated = false
	return nil
}

// Steps returns the steps in insertion order.
func (g *Graph) Steps() []*Step {
	out := make([]*Step, len(g.steps))
	copy(out, g.steps)
	return out
}

// Step retrieves a step by id.
func (g *Graph) Step(id string) (*Step, bool) {
	s, ok := g.index[id]
	return s, ok
}

// Len returns the number of steps in the graph.
func (g *Graph) Len() int {
	return len(g.steps)
}

// Validate checks dependency completeness, then acyclicity. Each defect gets
// a distinct diagnosis so callers can report precisely what is wrong.
func (g *Graph) Validate() error {
	// Dangling dependencies first
	for _, s := range g.steps {
		for _, dep := range s.DependsOn {
			if _, ok := g.index[dep]; !ok {
				return errors.Wrapf(errors.ErrUnknownDependency, "step %q depends on unknown step %q", s.ID, dep)
			}
		}
	}

	// Cycle check via depth-first traversal
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(g.steps))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visited:
			return nil
		case visiting:
			// Back-edge: name the cycle for the diagnosis
			cycle := append(cyclePath(stack, id), id)
			return errors.Wrapf(errors.ErrCyclicDependency, "%s", strings.Join(cycle, " -> "))
		}

		state[id] = visiting
		stack = append(stack, id)
		for _, dep := range g.index[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = visited
		return nil
	}

	for _, s := range g.steps {
		if err := visit(s.ID); err != nil {
			return err
		}
	}

	g.validated = true
	return nil
}

// TopologicalOrder returns one valid linearization of the graph. Ties among
// independent steps are broken by insertion order for determinism. The graph
// must have been validated first.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if !g.validated {
		return nil, errors.Wrap(errors.ErrInvalidInput, "topological order requires a validated graph")
	}

	remaining := make(map[string]int, len(g.steps))
	for _, s := range g.steps {
		remaining[s.ID] = len(s.DependsOn)
	}

	order := make([]string, 0, len(g.steps))
	emitted := make(map[string]bool, len(g.steps))

	for len(order) < len(g.steps) {
		progressed := false
		for _, s := range g.steps {
			if emitted[s.ID] || remaining[s.ID] > 0 {
				continue
			}
			order = append(order, s.ID)
			emitted[s.ID] = true
			progressed = true
			for _, other := range g.steps {
				for _, dep := range other.DependsOn {
					if dep == s.ID {
						remaining[other.ID]--
					}
				}
			}
			break
		}
		if !progressed {
			// Unreachable after a successful Validate
			return nil, errors.Wrap(errors.ErrInternal, "graph is not acyclic")
		}
	}

	return order, nil
}

// cyclePath recovers the portion of the DFS stack that forms the cycle back
// to the offending id.
func cyclePath(stack []string, id string) []string {
	for i, v := range stack {
		if v == id {
			return append([]string{}, stack[i:]...)
		}
	}
	return append([]string{}, stack...)
}
