package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Aparnap2/agentflow-pro-sub002/internal/workflow"
	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

// ResultCache stores the latest execution result per workflow and holds
// per-workflow run locks so concurrent triggers of the same workflow are
// rejected instead of racing.
type ResultCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewResultCache creates a result cache with the given entry TTL
func NewResultCache(client *goredis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
	}
}

// Save stores a run result under its run ID and as the workflow's latest
func (c *ResultCache) Save(ctx context.Context, runID string, res *workflow.Result) error {
	data, err := json.Marshal(res.ToMap())
	if err != nil {
		return errors.Wrapf(err, "failed to marshal result for workflow %s", res.Workflow)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.runKey(runID), data, c.ttl)
	pipe.Set(ctx, c.latestKey(res.Workflow), data, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to cache result for workflow %s", res.Workflow)
	}

	return nil
}

// GetByRunID retrieves a cached result by run ID
func (c *ResultCache) GetByRunID(ctx context.Context, runID string) (map[string]interface{}, error) {
	return c.get(ctx, c.runKey(runID))
}

// GetLatest retrieves the most recent cached result for a workflow
func (c *ResultCache) GetLatest(ctx context.Context, workflowName string) (map[string]interface{}, error) {
	return c.get(ctx, c.latestKey(workflowName))
}

func (c *ResultCache) get(ctx context.Context, key string) (map[string]interface{}, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "no cached result at %s", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cached result at %s", key)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal cached result at %s", key)
	}
	return out, nil
}

// AcquireRunLock takes the per-workflow run lock. Returns false when another
// run of the same workflow already holds it.
func (c *ResultCache) AcquireRunLock(ctx context.Context, workflowName string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.lockKey(workflowName), "1", ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "failed to acquire run lock for workflow %s", workflowName)
	}
	return ok, nil
}

// ReleaseRunLock releases the per-workflow run lock
func (c *ResultCache) ReleaseRunLock(ctx context.Context, workflowName string) error {
	if err := c.client.Del(ctx, c.lockKey(workflowName)).Err(); err != nil {
		return errors.Wrapf(err, "failed to release run lock for workflow %s", workflowName)
	}
	return nil
}

func (c *ResultCache) runKey(runID string) string {
	return fmt.Sprintf("run:%s", runID)
}

func (c *ResultCache) latestKey(workflowName string) string {
	return fmt.Sprintf("workflow:%s:latest", workflowName)
}

func (c *ResultCache) lockKey(workflowName string) string {
	return fmt.Sprintf("workflow:%s:running", workflowName)
}
