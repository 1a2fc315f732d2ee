package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/logger"
)

// ArchiveCollector reports gauges scraped from the run archive and the
// result cache on each Prometheus collection.
type ArchiveCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB
	redis    *redis.Client

	archivedRuns *prometheus.Desc
	failedRuns   *prometheus.Desc
	cachedKeys   *prometheus.Desc
}

// NewArchiveCollector creates a collector over the archive databases
func NewArchiveCollector(postgres *sqlx.DB, redisClient *redis.Client) *ArchiveCollector {
	return &ArchiveCollector{
		log:      logger.Get().With("component", "archive_collector"),
		postgres: postgres,
		redis:    redisClient,

		archivedRuns: prometheus.NewDesc(
			"agentflow_archived_runs",
			"Number of workflow runs in the archive",
			nil, nil,
		),
		failedRuns: prometheus.NewDesc(
			"agentflow_archived_failed_runs",
			"Number of archived runs that did not succeed",
			nil, nil,
		),
		cachedKeys: prometheus.NewDesc(
			"agentflow_cache_keys",
			"Number of keys in the result cache database",
			nil, nil,
		),
	}
}

// RegisterArchiveCollector registers the collector with the default registry
func RegisterArchiveCollector(postgres *sqlx.DB, redisClient *redis.Client) {
	prometheus.MustRegister(NewArchiveCollector(postgres, redisClient))
}

// Describe implements prometheus.Collector
func (c *ArchiveCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.archivedRuns
	ch <- c.failedRuns
	ch <- c.cachedKeys
}

// Collect implements prometheus.Collector
func (c *ArchiveCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.postgres != nil {
		var total, failed float64
		if err := c.postgres.GetContext(ctx, &total, `SELECT COUNT(*) FROM workflow_runs`); err != nil {
			c.log.Debugf("Failed to count archived runs: %v", err)
		} else {
			ch <- prometheus.MustNewConstMetric(c.archivedRuns, prometheus.GaugeValue, total)
		}
		if err := c.postgres.GetContext(ctx, &failed, `SELECT COUNT(*) FROM workflow_runs WHERE NOT success`); err != nil {
			c.log.Debugf("Failed to count failed runs: %v", err)
		} else {
			ch <- prometheus.MustNewConstMetric(c.failedRuns, prometheus.GaugeValue, failed)
		}
	}

	if c.redis != nil {
		size, err := c.redis.DBSize(ctx).Result()
		if err != nil {
			c.log.Debugf("Failed to read cache size: %v", err)
		} else {
			ch <- prometheus.MustNewConstMetric(c.cachedKeys, prometheus.GaugeValue, float64(size))
		}
	}
}
