package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/capability"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/metrics"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/logger"
)

// DefaultMaxConcurrency bounds in-flight steps when the caller does not set
// an explicit limit.
const DefaultMaxConcurrency = 5

// Runner drives a graph to completion: it dispatches steps whose dependencies
// all succeeded, cascades skips from failed dependencies, and aggregates the
// per-step results. The runner exclusively owns the mutable result map for
// the duration of one execution.
type Runner struct {
	executor       *Executor
	maxConcurrency int
	log            *logger.Logger
}

// NewRunner creates a workflow runner on top of a capability registry.
func NewRunner(registry *capability.Registry, maxConcurrency int) *Runner {
	return NewRunnerWithLimits(registry, maxConcurrency, Limits{})
}

// NewRunnerWithLimits creates a runner whose executor enforces engine-wide
// bounds on step timeouts and retry policies.
func NewRunnerWithLimits(registry *capability.Registry, maxConcurrency int, limits Limits) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Runner{
		executor:       NewExecutorWithLimits(registry, limits),
		maxConcurrency: maxConcurrency,
		log:            logger.Get().With("component", "workflow_runner"),
	}
}

type stepDone struct {
	id  string
	res *StepResult
	err error
}

// Execute validates the graph and runs it to a terminal state. A validation
// failure aborts immediately with no step attempted. Cancelling ctx lets
// in-flight steps stop at their next suspension point and marks everything
// not yet started as skipped; results of already finished steps are retained.
//
// The caller-supplied input is exposed to every capability under the
// reserved "workflow_input" parameter key.
func (r *Runner) Execute(ctx context.Context, g *Graph, input map[string]interface{}) *Result {
	result := &Result{
		Workflow:  g.Name,
		Steps:     make(map[string]*StepResult, g.Len()),
		StartedAt: time.Now(),
	}

	if err := g.Validate(); err != nil {
		return r.abort(result, errors.Wrap(err, "graph validation failed"))
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return r.abort(result, err)
	}

	for _, id := range order {
		result.Steps[id] = &StepResult{StepID: id, Status: StatusPending}
	}

	r.log.Infof("Starting workflow %q: %d steps, max concurrency %d",
		g.Name, len(order), r.maxConcurrency)

	var (
		done       = make(chan stepDone)
		inFlight   = 0
		finished   = 0
		halted     = false
		skipReason = ""
		abortErr   error
	)

	for finished < len(order) || inFlight > 0 {
		if halted {
			finished += r.skipPending(result, order, skipReason)
		} else {
			dispatched, skipped := r.advanceFrontier(ctx, g, result, order, input, inFlight, done)
			inFlight += dispatched
			finished += skipped
		}

		if inFlight == 0 {
			if finished >= len(order) {
				break
			}
			if halted {
				continue
			}
			// Every remaining step is pending yet nothing is runnable; after
			// a successful Validate this cannot happen.
			abortErr = errors.Wrap(errors.ErrInternal, "scheduler stalled with no runnable steps")
			halted = true
			skipReason = "run aborted"
			continue
		}

		if halted {
			d := <-done
			inFlight--
			finished++
			r.recordDone(result, d, &abortErr, &halted, &skipReason)
			continue
		}

		select {
		case d := <-done:
			inFlight--
			finished++
			r.recordDone(result, d, &abortErr, &halted, &skipReason)
		case <-ctx.Done():
			halted = true
			skipReason = "execution cancelled"
		}
	}

	result.Duration = time.Since(result.StartedAt)

	if abortErr != nil {
		return r.abort(result, abortErr)
	}
	return r.complete(result, order)
}

// advanceFrontier walks the steps in topological order, cascading skips from
// failed or skipped dependencies and dispatching ready steps up to the
// concurrency cap. Returns the number of steps dispatched and skipped.
func (r *Runner) advanceFrontier(
	ctx context.Context,
	g *Graph,
	result *Result,
	order []string,
	input map[string]interface{},
	inFlight int,
	done chan<- stepDone,
) (dispatched, skipped int) {
	for _, id := range order {
		sr := result.Steps[id]
		if sr.Status != StatusPending {
			continue
		}
		step, _ := g.Step(id)

		blockedBy := ""
		ready := true
		for _, dep := range step.DependsOn {
			switch d := result.Steps[dep]; {
			case d.Status == StatusFailed || d.Status == StatusSkipped:
				blockedBy = dep
			case !d.Status.Terminal():
				ready = false
			}
		}

		if blockedBy != "" {
			// Cascading skip: never attempted, distinct from "ran and failed".
			// Walking in topological order resolves transitive cascades in
			// this same pass.
			sr.Status = StatusSkipped
			sr.Error = fmt.Sprintf("dependency %q did not succeed", blockedBy)
			skipped++
			r.log.Debugf("Step %s skipped: dependency %s did not succeed", id, blockedBy)
			metrics.RecordStepExecution(step.Capability, string(StatusSkipped), 0, 0)
			continue
		}

		if !ready || inFlight+dispatched >= r.maxConcurrency {
			continue
		}

		sr.Status = StatusRunning
		dispatched++
		snapshot := terminalSnapshot(result)
		go func(step *Step) {
			res, err := r.executor.Run(ctx, step, snapshot, input)
			done <- stepDone{id: step.ID, res: res, err: err}
		}(step)
	}
	return dispatched, skipped
}

// recordDone folds one finished step back into the result map. An executor
// error is an internal invariant violation and flips the run into abort mode.
func (r *Runner) recordDone(result *Result, d stepDone, abortErr *error, halted *bool, skipReason *string) {
	if d.err != nil {
		*abortErr = d.err
		*halted = true
		*skipReason = "run aborted"
		// Keep the partial result so attempts and duration stay truthful in
		// the aborted run.
		sr := d.res
		if sr == nil {
			sr = &StepResult{StepID: d.id}
		}
		sr.Status = StatusFailed
		if sr.Error == "" {
			sr.Error = d.err.Error()
		}
		result.Steps[d.id] = sr
		return
	}
	result.Steps[d.id] = d.res
}

// skipPending marks every not-yet-started step as skipped.
func (r *Runner) skipPending(result *Result, order []string, reason string) int {
	skipped := 0
	for _, id := range order {
		sr := result.Steps[id]
		if sr.Status == StatusPending {
			sr.Status = StatusSkipped
			sr.Error = reason
			skipped++
		}
	}
	return skipped
}

func (r *Runner) abort(result *Result, err error) *Result {
	result.Status = RunAborted
	result.Success = false
	result.Error = err.Error()
	if result.Duration == 0 {
		result.Duration = time.Since(result.StartedAt)
	}
	r.log.Errorf("Workflow %q aborted: %v", result.Workflow, err)
	metrics.RecordWorkflowRun(result.Workflow, "aborted", result.Duration, len(result.Steps))
	return result
}

func (r *Runner) complete(result *Result, order []string) *Result {
	result.Status = RunCompleted
	result.Success = true
	for _, id := range order {
		if result.Steps[id].Status != StatusSucceeded {
			result.Success = false
			break
		}
	}

	if !result.Success {
		// The summary names the first failed step in topological order so a
		// caller can render a one-line diagnosis.
		for _, id := range order {
			if sr := result.Steps[id]; sr.Status == StatusFailed {
				result.Error = fmt.Sprintf("step %q failed: %s", id, sr.Error)
				break
			}
		}
		if result.Error == "" {
			result.Error = "execution cancelled before all steps ran"
		}
	}

	status := "success"
	if !result.Success {
		status = "failed"
	}
	metrics.RecordWorkflowRun(result.Workflow, status, result.Duration, len(order))
	r.log.Infof("Workflow %q %s: %d steps (duration: %s)",
		result.Workflow, status, len(order), result.Duration)
	return result
}

// terminalSnapshot copies the terminal entries of the result map so executor
// goroutines never observe a result the runner may still replace. Terminal
// step results are immutable, sharing the pointers is safe.
func terminalSnapshot(result *Result) map[string]*StepResult {
	snap := make(map[string]*StepResult, len(result.Steps))
	for id, sr := range result.Steps {
		if sr.Status.Terminal() {
			snap[id] = sr
		}
	}
	return snap
}
