// Package ratelimit provides a pacing limiter that spreads live target
// calls evenly across the configured rate rather than allowing bursts.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrAcquireAborted is returned when the caller's context is
	// canceled before a slot is granted.
	ErrAcquireAborted = errors.New("rate limiter acquire aborted")
	// ErrDisposed is returned to waiters when the limiter is disposed.
	ErrDisposed = errors.New("rate limiter disposed")
)

const minTick = 10 * time.Millisecond

type waiter struct {
	ch chan error
}

// Limiter grants one slot per interval, derived from a
// requests-per-minute budget. Concurrent callers queue FIFO; a
// background tick releases the head of the queue once the interval has
// elapsed since the last release.
type Limiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRelease time.Time
	queue       []*waiter
	stop        chan struct{}
	disposed    bool
}

// New creates a limiter allowing maxRequestsPerMinute releases per
// minute, evenly spaced.
func New(maxRequestsPerMinute int) *Limiter {
	if maxRequestsPerMinute <= 0 {
		maxRequestsPerMinute = 60
	}
	l := &Limiter{
		interval: time.Minute / time.Duration(maxRequestsPerMinute),
		stop:     make(chan struct{}),
	}
	tick := l.interval / 2
	if tick < minTick {
		tick = minTick
	}
	go l.run(tick)
	return l
}

// Acquire blocks until a slot is granted, the context is canceled, or
// the limiter is disposed. A context already canceled on entry fails
// immediately with ErrAcquireAborted.
func (l *Limiter) Acquire(ctx context.Context) error {
	if ctx != nil && ctx.Err() != nil {
		return ErrAcquireAborted
	}

	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return ErrDisposed
	}
	now := time.Now()
	if len(l.queue) == 0 && now.Sub(l.lastRelease) >= l.interval {
		l.lastRelease = now
		l.mu.Unlock()
		return nil
	}
	w := &waiter{ch: make(chan error, 1)}
	l.queue = append(l.queue, w)
	l.mu.Unlock()

	if ctx == nil {
		return <-w.ch
	}
	select {
	case err := <-w.ch:
		return err
	case <-ctx.Done():
		if l.remove(w) {
			return ErrAcquireAborted
		}
		// Lost the race with a grant; consume it so the slot is not
		// wasted.
		return <-w.ch
	}
}

// Dispose stops the tick and fails every queued waiter with
// ErrDisposed. Safe to call more than once.
func (l *Limiter) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return
	}
	l.disposed = true
	close(l.stop)
	for _, w := range l.queue {
		w.ch <- ErrDisposed
	}
	l.queue = nil
}

func (l *Limiter) run(tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.release()
		}
	}
}

func (l *Limiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || len(l.queue) == 0 {
		return
	}
	now := time.Now()
	if now.Sub(l.lastRelease) < l.interval {
		return
	}
	w := l.queue[0]
	l.queue = l.queue[1:]
	l.lastRelease = now
	w.ch <- nil
}

// remove splices a canceled waiter out of the queue. Returns false if
// the waiter was already granted or failed.
func (l *Limiter) remove(target *waiter) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, w := range l.queue {
		if w == target {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return true
		}
	}
	return false
}
