package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/capability"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

func TestRunner_Execute_LinearPipeline(t *testing.T) {
	reg := capability.NewRegistry()
	reg.Register("double", capability.New("double", "doubles the workflow value", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		input, _ := params[ParamWorkflowInput].(map[string]interface{})
		return input["value"].(int) * 2, nil
	}))
	var addSeen string
	reg.Register("add_text", capability.New("add_text", "appends text to its input", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		addSeen = params[ParamInput].(string)
		return addSeen, nil
	}))

	g := NewGraph("pipeline")
	require.NoError(t, g.AddStep(&Step{ID: "a", Capability: "double"}))
	require.NoError(t, g.AddStep(&Step{ID: "b", Capability: "add_text", InputTemplate: "{{a.output}}+1", DependsOn: []string{"a"}}))

	res := NewRunner(reg, 0).Execute(context.Background(), g, map[string]interface{}{"value": 3})

	assert.Equal(t, RunCompleted, res.Status)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, 6, res.Steps["a"].Output)
	assert.Equal(t, "6+1", res.Steps["b"].Output)
	assert.Equal(t, "6+1", addSeen)
}

func TestRunner_Execute_ValidationFailureAbortsBeforeDispatch(t *testing.T) {
	var calls int32
	reg := capability.NewRegistry()
	reg.Register("noop", capability.New("noop", "counts invocations", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}))

	g := NewGraph("cyclic")
	require.NoError(t, g.AddStep(step("a", "b")))
	require.NoError(t, g.AddStep(step("b", "a")))

	res := NewRunner(reg, 2).Execute(context.Background(), g, nil)

	assert.Equal(t, RunAborted, res.Status)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "validation failed")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRunner_Execute_CascadingSkip(t *testing.T) {
	reg := capability.NewRegistry()
	reg.Register("noop", capability.New("noop", "succeeds", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return "ok", nil
	}))
	reg.Register("boom", capability.New("boom", "fails", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}))

	// a fails, b depends on a, c depends on b, d is independent
	g := NewGraph("skips")
	require.NoError(t, g.AddStep(&Step{ID: "a", Capability: "boom"}))
	require.NoError(t, g.AddStep(&Step{ID: "b", Capability: "noop", DependsOn: []string{"a"}}))
	require.NoError(t, g.AddStep(&Step{ID: "c", Capability: "noop", DependsOn: []string{"b"}}))
	require.NoError(t, g.AddStep(&Step{ID: "d", Capability: "noop"}))

	res := NewRunner(reg, 4).Execute(context.Background(), g, nil)

	assert.Equal(t, RunCompleted, res.Status)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, `step "a" failed`)
	assert.Contains(t, res.Error, "boom")

	assert.Equal(t, StatusFailed, res.Steps["a"].Status)
	assert.Equal(t, StatusSkipped, res.Steps["b"].Status)
	assert.Contains(t, res.Steps["b"].Error, `dependency "a"`)
	assert.Equal(t, StatusSkipped, res.Steps["c"].Status)
	assert.Contains(t, res.Steps["c"].Error, `dependency "b"`)
	assert.Equal(t, StatusSucceeded, res.Steps["d"].Status)
	assert.Equal(t, 0, res.Steps["b"].Attempts)
	assert.Equal(t, 0, res.Steps["c"].Attempts)
}

func TestRunner_Execute_ConcurrencyCapSerializes(t *testing.T) {
	var mu sync.Mutex
	var inFlight, peak int
	reg := capability.NewRegistry()
	reg.Register("track", capability.New("track", "tracks concurrent invocations", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	}))

	g := NewGraph("independent")
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddStep(&Step{ID: id, Capability: "track"}))
	}

	res := NewRunner(reg, 1).Execute(context.Background(), g, nil)

	assert.True(t, res.Success)
	assert.Equal(t, 1, peak)
}

func TestRunner_Execute_ConcurrencyCapAllowsParallelism(t *testing.T) {
	var mu sync.Mutex
	var inFlight, peak int
	release := make(chan struct{})
	reg := capability.NewRegistry()
	reg.Register("track", capability.New("track", "tracks concurrent invocations", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		ready := inFlight == 3
		mu.Unlock()
		if ready {
			close(release)
		}
		<-release

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	}))

	g := NewGraph("independent")
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddStep(&Step{ID: id, Capability: "track"}))
	}

	res := NewRunner(reg, 3).Execute(context.Background(), g, nil)

	assert.True(t, res.Success)
	assert.Equal(t, 3, peak)
}

func TestRunner_Execute_CancellationSkipsPending(t *testing.T) {
	started := make(chan struct{})
	reg := capability.NewRegistry()
	reg.Register("wait", capability.New("wait", "blocks until cancelled", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	reg.Register("noop", capability.New("noop", "succeeds", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return "ok", nil
	}))

	g := NewGraph("cancelled")
	require.NoError(t, g.AddStep(&Step{ID: "a", Capability: "wait"}))
	require.NoError(t, g.AddStep(&Step{ID: "b", Capability: "noop", DependsOn: []string{"a"}}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	res := NewRunner(reg, 2).Execute(ctx, g, nil)

	assert.Equal(t, RunCompleted, res.Status)
	assert.False(t, res.Success)
	assert.Equal(t, StatusFailed, res.Steps["a"].Status)
	assert.Equal(t, StatusSkipped, res.Steps["b"].Status)
	assert.Equal(t, 0, res.Steps["b"].Attempts)
}

func TestRunner_Execute_UnresolvedReferenceAbortsRun(t *testing.T) {
	reg := capability.NewRegistry()
	reg.Register("noop", capability.New("noop", "succeeds", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		return "ok", nil
	}))

	// b references a step it does not depend on; the ordering guarantee is
	// broken only if c has not finished when b runs, which a long c forces.
	reg.Register("slow", capability.New("slow", "finishes late", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		time.Sleep(100 * time.Millisecond)
		return "late", nil
	}))

	g := NewGraph("broken")
	require.NoError(t, g.AddStep(&Step{ID: "a", Capability: "noop"}))
	require.NoError(t, g.AddStep(&Step{ID: "c", Capability: "slow"}))
	require.NoError(t, g.AddStep(&Step{ID: "b", Capability: "noop", InputTemplate: "{{c.output}}", DependsOn: []string{"a"}}))

	res := NewRunner(reg, 3).Execute(context.Background(), g, nil)

	assert.Equal(t, RunAborted, res.Status)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unresolved")

	// The faulted step keeps its partial result instead of a zeroed one.
	b := res.Steps["b"]
	require.NotNil(t, b)
	assert.Equal(t, StatusFailed, b.Status)
	assert.Contains(t, b.Error, "unresolved")
	assert.Greater(t, b.Duration, time.Duration(0))
}

func TestRunner_Execute_DiamondWaitsForAllDependencies(t *testing.T) {
	var order []string
	var mu sync.Mutex
	record := func(id string, delay time.Duration) capability.Capability {
		return capability.New(id, "records completion order", func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			time.Sleep(delay)
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return id, nil
		})
	}
	reg := capability.NewRegistry()
	reg.Register("root", record("root", 0))
	reg.Register("left", record("left", 40*time.Millisecond))
	reg.Register("right", record("right", 5*time.Millisecond))
	reg.Register("join", record("join", 0))

	g := NewGraph("diamond")
	require.NoError(t, g.AddStep(&Step{ID: "root", Capability: "root"}))
	require.NoError(t, g.AddStep(&Step{ID: "left", Capability: "left", DependsOn: []string{"root"}}))
	require.NoError(t, g.AddStep(&Step{ID: "right", Capability: "right", DependsOn: []string{"root"}}))
	require.NoError(t, g.AddStep(&Step{ID: "join", Capability: "join", DependsOn: []string{"left", "right"}}))

	res := NewRunner(reg, 4).Execute(context.Background(), g, nil)

	require.True(t, res.Success)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "join", order[len(order)-1])
	assert.Equal(t, "root", order[0])
}

func TestRunner_Execute_EmptyGraph(t *testing.T) {
	reg := capability.NewRegistry()
	res := NewRunner(reg, 1).Execute(context.Background(), NewGraph("empty"), nil)

	assert.Equal(t, RunCompleted, res.Status)
	assert.True(t, res.Success)
	assert.Empty(t, res.Steps)
}

func TestRunner_Execute_MissingCapabilityFailsStep(t *testing.T) {
	reg := capability.NewRegistry()
	g := NewGraph("missing")
	require.NoError(t, g.AddStep(&Step{ID: "a", Capability: "ghost"}))

	res := NewRunner(reg, 1).Execute(context.Background(), g, nil)

	assert.Equal(t, RunCompleted, res.Status)
	assert.False(t, res.Success)
	assert.Equal(t, StatusFailed, res.Steps["a"].Status)
	assert.Contains(t, res.Steps["a"].Error, "not found")
}
