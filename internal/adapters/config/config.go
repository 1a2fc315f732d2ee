package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

type Config struct {
	App           AppConfig
	Engine        EngineConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"agentflow"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// EngineConfig tunes the workflow execution engine
type EngineConfig struct {
	// MaxConcurrency bounds the number of steps in flight per execution.
	// This also shields rate-limited or expensive capabilities.
	MaxConcurrency int `envconfig:"ENGINE_MAX_CONCURRENCY" default:"5"`

	// DefaultStepTimeout applies when a step declares no timeout of its own
	DefaultStepTimeout time.Duration `envconfig:"ENGINE_DEFAULT_STEP_TIMEOUT" default:"2m"`

	// MaxAttempts caps any step's retry policy
	MaxAttempts int `envconfig:"ENGINE_MAX_ATTEMPTS" default:"10"`

	// ResultCacheTTL controls how long finished workflow results stay in Redis
	ResultCacheTTL time.Duration `envconfig:"ENGINE_RESULT_CACHE_TTL" default:"1h"`

	// RunLockTTL bounds the per-workflow execution lock
	RunLockTTL time.Duration `envconfig:"ENGINE_RUN_LOCK_TTL" default:"10m"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"agentflow"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for background workers
type WorkerConfig struct {
	// Run archive retention
	RetentionInterval time.Duration `envconfig:"WORKER_RETENTION_INTERVAL" default:"1h"`
	RetentionTTL      time.Duration `envconfig:"WORKER_RETENTION_TTL" default:"168h"` // 7 days
	RetentionEnabled  bool          `envconfig:"WORKER_RETENTION_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
