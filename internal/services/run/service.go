package run

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/config"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/capability"
	rundomain "github.com/Aparnap2/agentflow-pro-sub002/internal/domain/run"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/events"
	redisrepo "github.com/Aparnap2/agentflow-pro-sub002/internal/repository/redis"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/workflow"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/logger"
)

// ResultCache abstracts the Redis result cache. All methods are optional
// conveniences for callers; the service works without a cache.
type ResultCache interface {
	Save(ctx context.Context, runID string, res *workflow.Result) error
	AcquireRunLock(ctx context.Context, workflowName string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, workflowName string) error
}

// Options configures the optional integrations of the run service
type Options struct {
	Repository rundomain.Repository // nil disables archiving
	Cache      ResultCache          // nil disables caching and run locks
	Publisher  *events.Publisher
	LockTTL    time.Duration
}

// Service drives workflow executions and fans the results out to the
// archive, the cache, and the event stream. Execution itself never fails
// because a side channel is down.
type Service struct {
	runner    *workflow.Runner
	repo      rundomain.Repository
	cache     ResultCache
	publisher *events.Publisher
	lockTTL   time.Duration
	log       *logger.Logger
}

// Dependencies are the side channels NewFromConfig assembles. A nil field
// disables the matching integration.
type Dependencies struct {
	Repository rundomain.Repository
	Redis      *goredis.Client
	Publisher  *events.Publisher
}

// NewFromConfig wires a run service from engine settings: runner concurrency
// and limits, the result cache TTL, and the run lock TTL all come from cfg.
func NewFromConfig(cfg config.EngineConfig, registry *capability.Registry, deps Dependencies) *Service {
	opts := Options{
		Repository: deps.Repository,
		Publisher:  deps.Publisher,
		LockTTL:    cfg.RunLockTTL,
	}
	if deps.Redis != nil {
		opts.Cache = redisrepo.NewResultCache(deps.Redis, cfg.ResultCacheTTL)
	}

	runner := workflow.NewRunnerWithLimits(registry, cfg.MaxConcurrency, workflow.Limits{
		DefaultStepTimeout: cfg.DefaultStepTimeout,
		MaxAttempts:        cfg.MaxAttempts,
	})
	return NewService(runner, opts)
}

// NewService creates a run service around a workflow runner
func NewService(runner *workflow.Runner, opts Options) *Service {
	return &Service{
		runner:    runner,
		repo:      opts.Repository,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		lockTTL:   opts.LockTTL,
		log:       logger.Get().With("service", "run"),
	}
}

// Execute runs a workflow end to end and returns the run ID with the
// execution result. When a run of the same workflow already holds the run
// lock the call fails with ErrAlreadyExists and nothing is executed.
func (s *Service) Execute(ctx context.Context, g *workflow.Graph, input map[string]interface{}) (uuid.UUID, *workflow.Result, error) {
	runID := uuid.New()

	if s.cache != nil {
		ok, err := s.cache.AcquireRunLock(ctx, g.Name, s.lockTTL)
		if err != nil {
			s.log.Warnw("Run lock check failed, proceeding without lock",
				"workflow", g.Name,
				"error", err,
			)
		} else if !ok {
			return uuid.Nil, nil, errors.Wrapf(errors.ErrAlreadyExists, "workflow %s is already running", g.Name)
		} else {
			defer func() {
				if err := s.cache.ReleaseRunLock(context.WithoutCancel(ctx), g.Name); err != nil {
					s.log.Warnw("Failed to release run lock",
						"workflow", g.Name,
						"error", err,
					)
				}
			}()
		}
	}

	s.publisher.PublishRunStarted(ctx, runID.String(), g.Name, g.Len())

	res := s.runner.Execute(ctx, g, input)

	// Side channels must survive caller cancellation
	finishCtx := context.WithoutCancel(ctx)
	s.archive(finishCtx, runID, res)
	s.cacheResult(finishCtx, runID, res)
	s.publisher.PublishRunFinished(finishCtx, runID.String(), res)

	return runID, res, nil
}

// GetRun retrieves an archived run by ID
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*rundomain.Record, error) {
	if s.repo == nil {
		return nil, errors.Wrap(errors.ErrUnavailable, "run archive is not configured")
	}
	return s.repo.GetByID(ctx, id)
}

// ListRecent retrieves the most recent archived runs for a workflow
func (s *Service) ListRecent(ctx context.Context, workflowName string, limit int) ([]rundomain.Record, error) {
	if s.repo == nil {
		return nil, errors.Wrap(errors.ErrUnavailable, "run archive is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListRecent(ctx, workflowName, limit)
}

func (s *Service) archive(ctx context.Context, runID uuid.UUID, res *workflow.Result) {
	if s.repo == nil {
		return
	}

	steps, err := json.Marshal(res.Steps)
	if err != nil {
		s.log.Errorw("Failed to serialize step results for archive",
			"run_id", runID,
			"error", err,
		)
		return
	}

	if err := s.repo.Create(ctx, rundomain.NewRecord(runID, res, steps)); err != nil {
		s.log.Errorw("Failed to archive run",
			"run_id", runID,
			"workflow", res.Workflow,
			"error", err,
		)
	}
}

func (s *Service) cacheResult(ctx context.Context, runID uuid.UUID, res *workflow.Result) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Save(ctx, runID.String(), res); err != nil {
		s.log.Warnw("Failed to cache run result",
			"run_id", runID,
			"workflow", res.Workflow,
			"error", err,
		)
	}
}
