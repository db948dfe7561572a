package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedPool(t *testing.T, workers, queueSize int) *Pool {
	t.Helper()
	pool := NewPool(workers, queueSize)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Stop)
	return pool
}

func TestPoolRunsTasks(t *testing.T) {
	pool := startedPool(t, 2, 10)

	var ran atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		key := string(rune('a' + i))
		err := pool.Submit(Task{
			Key: key,
			Run: func(ctx context.Context) error {
				defer wg.Done()
				ran.Add(1)
				return nil
			},
		})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, int32(5), ran.Load())
}

func TestPoolRejectsDuplicateKey(t *testing.T) {
	pool := startedPool(t, 1, 10)

	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, pool.Submit(Task{
		Key: "fp-1",
		Run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	err := pool.Submit(Task{Key: "fp-1", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.True(t, pool.Pending("fp-1"))

	close(release)

	// Once the first task drains the key is free again
	require.Eventually(t, func() bool { return !pool.Pending("fp-1") }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, pool.Submit(Task{Key: "fp-1", Run: func(ctx context.Context) error { return nil }}))
}

func TestPoolQueueFull(t *testing.T) {
	pool := startedPool(t, 1, 1)

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})

	// Occupy the single worker
	require.NoError(t, pool.Submit(Task{
		Key: "busy",
		Run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	// Fill the queue
	require.NoError(t, pool.Submit(Task{Key: "queued", Run: func(ctx context.Context) error { return nil }}))

	err := pool.Submit(Task{Key: "overflow", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.False(t, pool.Pending("overflow"))
}

func TestPoolCancelRunningTask(t *testing.T) {
	pool := startedPool(t, 1, 10)

	started := make(chan struct{})
	observed := make(chan error, 1)

	require.NoError(t, pool.Submit(Task{
		Key: "fp-1",
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			observed <- ctx.Err()
			return ctx.Err()
		},
	}))
	<-started

	pool.Cancel("fp-1")

	select {
	case err := <-observed:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

func TestPoolCancelQueuedTaskNeverRuns(t *testing.T) {
	pool := startedPool(t, 1, 10)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(Task{
		Key: "busy",
		Run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	var ran atomic.Bool
	require.NoError(t, pool.Submit(Task{
		Key: "fp-1",
		Run: func(ctx context.Context) error {
			ran.Store(true)
			return nil
		},
	}))

	pool.Cancel("fp-1")
	close(release)

	require.Eventually(t, func() bool { return !pool.Pending("fp-1") }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, ran.Load(), "cancelled queued task must not run")
}

func TestPoolSubmitValidation(t *testing.T) {
	pool := startedPool(t, 1, 10)

	assert.Error(t, pool.Submit(Task{Key: "", Run: func(ctx context.Context) error { return nil }}))
	assert.Error(t, pool.Submit(Task{Key: "fp-1", Run: nil}))
}

func TestPoolStopCancelsPending(t *testing.T) {
	pool := NewPool(1, 10)
	require.NoError(t, pool.Start(context.Background()))

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, pool.Submit(Task{
		Key: "fp-1",
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		},
	}))
	<-started

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("running task was not cancelled by Stop")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	// Pool refuses work after Stop
	assert.ErrorIs(t, pool.Submit(Task{Key: "late", Run: func(ctx context.Context) error { return nil }}), ErrNotStarted)
}

func TestPoolStartTwice(t *testing.T) {
	pool := NewPool(1, 10)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	assert.Error(t, pool.Start(context.Background()))
}
