package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exitInterrupt is the conventional exit code for death by SIGINT.
const exitInterrupt = 130

// interruptContext cancels the returned context on the first interrupt
// or SIGTERM, letting an in-flight run finish assembling its partial
// results. A second interrupt calls exit immediately. The returned
// stop func releases the signal registration.
func interruptContext(parent context.Context, exit func(int)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
		cancel()
	}

	go func() {
		defer signal.Stop(sig)
		select {
		case <-sig:
			fmt.Fprintln(os.Stderr, "Interrupted; finishing in-flight work. Interrupt again to exit immediately.")
			cancel()
		case <-done:
			return
		}
		select {
		case <-sig:
			exit(exitInterrupt)
		case <-done:
		}
	}()

	return ctx, stop
}
