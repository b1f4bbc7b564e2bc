package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfdeck/surfdeck/metric"
)

func TestPoolProcessesWork(t *testing.T) {
	var processed atomic.Int64
	var wg sync.WaitGroup

	pool := NewPool(2, 16, func(_ context.Context, _ int) error {
		processed.Add(1)
		wg.Done()
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(i))
	}
	wg.Wait()

	require.NoError(t, pool.Stop(time.Second))
	assert.Equal(t, int64(10), processed.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestPoolLifecycle(t *testing.T) {
	pool := NewPool(1, 1, func(_ context.Context, _ int) error { return nil })

	t.Run("submit before start", func(t *testing.T) {
		assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)
	})

	t.Run("double start", func(t *testing.T) {
		require.NoError(t, pool.Start(context.Background()))
		assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)
	})

	t.Run("submit after stop", func(t *testing.T) {
		require.NoError(t, pool.Stop(time.Second))
		assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		require.NoError(t, pool.Stop(time.Second))
	})
}

func TestPoolNilProcessorPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewPool[int](1, 1, nil)
	})
}

func TestPoolQueueFull(t *testing.T) {
	block := make(chan struct{})
	// Buffered so the worker's send for the second item (which the test
	// never receives) cannot block the drain during Stop.
	started := make(chan struct{}, 2)

	pool := NewPool(1, 1, func(_ context.Context, _ int) error {
		started <- struct{}{}
		<-block
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	// First item occupies the worker, second fills the queue.
	require.NoError(t, pool.Submit(1))
	<-started
	require.NoError(t, pool.Submit(2))

	err := pool.Submit(3)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), pool.Stats().Dropped)

	close(block)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPoolPanicContainment(t *testing.T) {
	var recovered atomic.Value
	done := make(chan struct{})

	pool := NewPool(1, 4, func(_ context.Context, n int) error {
		if n == 13 {
			panic("unlucky")
		}
		close(done)
		return nil
	}, WithPanicHandler(func(_ int, r any) {
		recovered.Store(fmt.Sprint(r))
	}))
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Submit(13))
	// The worker must survive the panic and process the next item.
	require.NoError(t, pool.Submit(1))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive processor panic")
	}

	require.NoError(t, pool.Stop(time.Second))
	assert.Equal(t, "unlucky", recovered.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Panicked)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestPoolContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(2, 4, func(_ context.Context, _ int) error { return nil })
	require.NoError(t, pool.Start(ctx))

	cancel()

	// Workers exit on context cancel, so Stop drains immediately.
	require.NoError(t, pool.Stop(time.Second))
}

func TestPoolMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	var wg sync.WaitGroup

	pool := NewPool(1, 8, func(_ context.Context, _ int) error {
		wg.Done()
		return nil
	}, WithMetricsRegistry[int](registry, "dispatch"))
	require.NoError(t, pool.Start(context.Background()))

	wg.Add(1)
	require.NoError(t, pool.Submit(1))
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["dispatch_submitted_total"])
	assert.True(t, names["dispatch_processed_total"])
}

func TestPoolDefaults(t *testing.T) {
	pool := NewPool(0, 0, func(_ context.Context, _ int) error { return nil })
	stats := pool.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, 256, stats.QueueSize)
}
