package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aparnap2/agentflow-pro-sub002/pkg/errors"
)

type captureTracker struct {
	mu     sync.Mutex
	errors []error
	tags   []map[string]string
}

func (t *captureTracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, err)
	t.tags = append(t.tags, tags)
	return nil
}

func (t *captureTracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

func (t *captureTracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
}

func (t *captureTracker) Flush(ctx context.Context) error { return nil }

func (t *captureTracker) captured() []error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]error(nil), t.errors...)
}

func testLogger(t *testing.T) (*Logger, *captureTracker) {
	t.Helper()
	require.NoError(t, Init("debug", "test"))
	t.Cleanup(func() { SetErrorTracker(nil) })

	tracker := &captureTracker{}
	SetErrorTracker(tracker)
	return Get(), tracker
}

func TestLogger_ErrorReachesTracker(t *testing.T) {
	log, tracker := testLogger(t)

	log.Errorf("stage %s broke", "render")

	captured := tracker.captured()
	require.Len(t, captured, 1)
	assert.Contains(t, captured[0].Error(), "stage render broke")
	assert.Equal(t, "log", tracker.tags[0]["origin"])
}

func TestLogger_ErrorwReachesTracker(t *testing.T) {
	log, tracker := testLogger(t)

	log.Errorw("archive write failed", "run_id", "abc")

	captured := tracker.captured()
	require.Len(t, captured, 1)
	assert.Contains(t, captured[0].Error(), "archive write failed")
}

func TestLogger_ChildKeepsTracker(t *testing.T) {
	log, tracker := testLogger(t)

	log.With("component", "test").Errorf("child failure")

	require.Len(t, tracker.captured(), 1)
}

func TestLogger_WarnNotTracked(t *testing.T) {
	log, tracker := testLogger(t)

	log.Warnf("merely worrying")

	assert.Empty(t, tracker.captured())
}
