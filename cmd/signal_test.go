package cmd

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sendInterrupt(t *testing.T) {
	t.Helper()
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
}

func TestInterruptContextCancelsOnFirstInterrupt(t *testing.T) {
	exited := make(chan int, 1)
	ctx, stop := interruptContext(context.Background(), func(code int) { exited <- code })
	defer stop()

	sendInterrupt(t)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled by interrupt")
	}

	select {
	case code := <-exited:
		t.Fatalf("exit called after a single interrupt: %d", code)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInterruptContextSecondInterruptForcesExit(t *testing.T) {
	exited := make(chan int, 1)
	ctx, stop := interruptContext(context.Background(), func(code int) { exited <- code })
	defer stop()

	sendInterrupt(t)
	<-ctx.Done()

	sendInterrupt(t)

	select {
	case code := <-exited:
		require.Equal(t, exitInterrupt, code)
	case <-time.After(2 * time.Second):
		t.Fatal("second interrupt did not force an exit")
	}
}

func TestInterruptContextStopReleasesWatcher(t *testing.T) {
	exited := make(chan int, 1)
	ctx, stop := interruptContext(context.Background(), func(code int) { exited <- code })

	stop()
	require.Error(t, ctx.Err())

	select {
	case code := <-exited:
		t.Fatalf("exit called after stop: %d", code)
	case <-time.After(50 * time.Millisecond):
	}
}
