// Package pool provides a bounded, cancellable map over a slice of
// work items. It makes no ordering guarantee; callers needing
// determinism sort the collected results afterward.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most concurrency workers. Workers
// share one cursor over the item list; once the context is canceled no
// new items are claimed, but in-flight invocations run to completion.
// fn reports ok=false to indicate a skipped or aborted item, which
// produces no result.
func Map[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T, index int) (R, bool)) []R {
	if len(items) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	workers := min(concurrency, len(items))

	var (
		cursor  atomic.Int64
		mu      sync.Mutex
		results []R
	)

	g := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if ctx.Err() != nil {
					return nil
				}
				i := int(cursor.Add(1)) - 1
				if i >= len(items) {
					return nil
				}
				r, ok := fn(ctx, items[i], i)
				if !ok {
					continue
				}
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()
	return results
}
