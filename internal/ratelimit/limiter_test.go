package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireImmediateWhenIdle(t *testing.T) {
	l := New(6000)
	defer l.Dispose()

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSequentialAcquiresArePaced(t *testing.T) {
	// 6000 rpm -> 10ms interval.
	l := New(6000)
	defer l.Dispose()

	require.NoError(t, l.Acquire(context.Background()))
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestAcquireCanceledContextFailsImmediately(t *testing.T) {
	l := New(60)
	defer l.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrAcquireAborted)
}

func TestAcquireAbortWhileQueued(t *testing.T) {
	// 1 rpm so a second acquire queues for a long time.
	l := New(1)
	defer l.Dispose()

	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAcquireAborted)
	case <-time.After(time.Second):
		t.Fatal("queued acquire did not abort")
	}
}

func TestDisposeFailsQueuedWaiters(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Acquire(context.Background()))

	const waiters = 3
	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Acquire(context.Background())
		}()
	}

	time.Sleep(20 * time.Millisecond)
	l.Dispose()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrDisposed)
	}
}

func TestDisposeIdempotent(t *testing.T) {
	l := New(60)
	l.Dispose()
	l.Dispose()

	err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
}
