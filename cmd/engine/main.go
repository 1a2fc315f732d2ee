package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/config"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/errors/noop"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/errors/sentry"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/kafka"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/postgres"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/adapters/redis"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/events"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/metrics"
	pgrepo "github.com/Aparnap2/agentflow-pro-sub002/internal/repository/postgres"
	"github.com/Aparnap2/agentflow-pro-sub002/internal/workers"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	var publisher *events.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		publisher = events.NewPublisher(producer, cfg.App.Name)
		log.Info("Kafka event publishing enabled")
	}

	metrics.RegisterArchiveCollector(pgClient.DB(), redisClient.Client())

	runRepo := pgrepo.NewRunRepository(pgClient.DB())

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewRetentionWorker(
		runRepo,
		publisher,
		cfg.Workers.RetentionInterval,
		cfg.Workers.RetentionTTL,
		cfg.Workers.RetentionEnabled,
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	metricsServer := startMetricsServer(cfg, log)

	log.Info("System initialized successfully")

	waitForShutdown(cancel, scheduler, metricsServer, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// startMetricsServer exposes Prometheus metrics when enabled
func startMetricsServer(cfg *config.Config, log *logger.Logger) *http.Server {
	if !cfg.Metrics.Enabled {
		log.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		log.Infof("Metrics server listening on %s", cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()

	return srv
}

// waitForShutdown blocks until a signal arrives, then shuts components down
func waitForShutdown(cancel context.CancelFunc, scheduler *workers.Scheduler, metricsServer *http.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Metrics server shutdown: %v", err)
		}
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer flushCancel()
	_ = errorTracker.Flush(flushCtx)
	log.Info("Shutdown complete")
}
