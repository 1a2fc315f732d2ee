package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock worker for testing
type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name string, interval time.Duration, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return nil
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(250 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// Immediate run plus at least one tick
	assert.GreaterOrEqual(t, worker.GetRunCount(), 2)
}

func TestScheduler_DoubleStartRejected(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newMockWorker("test-worker", time.Hour, true))

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	assert.Error(t, scheduler.Start(context.Background()))
}

func TestScheduler_DisabledWorkerNotRun(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("disabled-worker", 50*time.Millisecond, false)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Equal(t, 0, worker.GetRunCount())
}

func TestScheduler_ContextCancellation(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 50*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))

	time.Sleep(80 * time.Millisecond)
	cancel()
	time.Sleep(80 * time.Millisecond)

	countAfterCancel := worker.GetRunCount()
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, countAfterCancel, worker.GetRunCount())

	require.NoError(t, scheduler.Stop())
}

func TestScheduler_WorkerPanicContained(t *testing.T) {
	scheduler := NewScheduler()

	panicking := newMockWorker("panicking-worker", 50*time.Millisecond, true)
	panicking.runFunc = func(ctx context.Context) error {
		panic("worker exploded")
	}
	healthy := newMockWorker("healthy-worker", 50*time.Millisecond, true)

	scheduler.RegisterWorker(panicking)
	scheduler.RegisterWorker(healthy)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(180 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	// The panicking worker keeps its schedule and the healthy one is unaffected
	assert.GreaterOrEqual(t, panicking.GetRunCount(), 2)
	assert.GreaterOrEqual(t, healthy.GetRunCount(), 2)
}

func TestScheduler_RegisterAfterStartIgnored(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newMockWorker("early", time.Hour, true))

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	scheduler.RegisterWorker(newMockWorker("late", time.Hour, true))
	assert.Len(t, scheduler.GetWorkers(), 1)
}

func TestBaseWorker_Health(t *testing.T) {
	w := NewBaseWorker("health-worker", time.Minute, true)

	w.RecordRun(100 * time.Millisecond)
	w.RecordError(assert.AnError, 200*time.Millisecond)

	h := w.Health()
	assert.Equal(t, int64(2), h.RunCount)
	assert.Equal(t, int64(1), h.ErrorCount)
	assert.Equal(t, assert.AnError, h.LastError)
	assert.Equal(t, 150*time.Millisecond, h.AvgDuration)
	assert.True(t, h.Enabled)

	w.SetEnabled(false)
	assert.False(t, w.Enabled())
}
