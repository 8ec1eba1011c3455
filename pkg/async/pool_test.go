package async

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shutdownCtx(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 3, TaskTimeout: time.Second})

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(shutdownCtx(t, time.Second)))
	assert.Equal(t, int32(10), count.Load())

	stats := pool.Stats()
	assert.Equal(t, "test", stats.Name)
	assert.Equal(t, 3, stats.Workers)
	assert.Equal(t, 6, stats.Capacity)
	assert.Equal(t, uint64(10), stats.Submitted)
	assert.Equal(t, uint64(10), stats.Completed)
	assert.Zero(t, stats.Queued)
}

func TestWorkerPool_Errors(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{
		Name:    "test",
		Workers: 2,
		Logger:  testLogger(&bytes.Buffer{}),
	})

	require.NoError(t, pool.Submit(func(ctx context.Context) error { return errors.New("boom") }))
	require.NoError(t, pool.Submit(func(ctx context.Context) error { panic("oops") }))
	require.NoError(t, pool.Shutdown(shutdownCtx(t, time.Second)))

	var msgs []string
	for err := range pool.Errors() {
		msgs = append(msgs, err.Error())
	}
	assert.ElementsMatch(t, []string{"boom", "panic: oops"}, msgs)

	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.Panicked)
	assert.Zero(t, stats.Completed)
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test"})
	require.NoError(t, pool.Shutdown(shutdownCtx(t, time.Second)))

	assert.ErrorIs(t, pool.Submit(func(ctx context.Context) error { return nil }), ErrPoolClosed)
	assert.False(t, pool.TrySubmit(func(ctx context.Context) error { return nil }))
	assert.Equal(t, uint64(2), pool.Stats().Rejected)

	// Second shutdown is a no-op
	assert.NoError(t, pool.Shutdown(shutdownCtx(t, time.Second)))
}

func TestWorkerPool_TrySubmitFull(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 1, QueueSize: 1})

	block := make(chan struct{})
	started := make(chan struct{})
	require.True(t, pool.TrySubmit(func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}))
	<-started

	// Worker busy, queue holds one
	assert.True(t, pool.TrySubmit(func(ctx context.Context) error { return nil }))
	assert.False(t, pool.TrySubmit(func(ctx context.Context) error { return nil }))
	assert.Equal(t, 1, pool.Stats().Queued)
	assert.Equal(t, uint64(1), pool.Stats().Rejected)

	close(block)
	require.NoError(t, pool.Shutdown(shutdownCtx(t, time.Second)))
}

func TestWorkerPool_ShutdownDeadline(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "dispatch", Workers: 1})

	started := make(chan struct{})
	canceled := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return nil
	}))
	<-started

	err := pool.Shutdown(shutdownCtx(t, 20*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "dispatch pool did not drain")

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("running task was not canceled")
	}
}

func TestWorkerPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, PoolConfig{Name: "test", Workers: 2})

	cancel()
	select {
	case _, ok := <-pool.Errors():
		assert.False(t, ok, "errors channel closes once workers exit")
	case <-time.After(time.Second):
		t.Fatal("workers did not exit")
	}
}
