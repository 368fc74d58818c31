package pool

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapProcessesAllItems(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	results := Map(context.Background(), items, 3, func(_ context.Context, n, _ int) (int, bool) {
		return n * 2, true
	})

	sort.Ints(results)
	assert.Equal(t, []int{2, 4, 6, 8, 10}, results)
}

func TestMapRespectsConcurrencyLimit(t *testing.T) {
	var active, peak atomic.Int64
	var mu sync.Mutex

	items := make([]int, 20)
	Map(context.Background(), items, 4, func(_ context.Context, _, i int) (int, bool) {
		cur := active.Add(1)
		mu.Lock()
		if cur > peak.Load() {
			peak.Store(cur)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return i, true
	})

	assert.LessOrEqual(t, peak.Load(), int64(4))
}

func TestMapSkippedItemsProduceNoResult(t *testing.T) {
	items := []int{1, 2, 3, 4}

	results := Map(context.Background(), items, 2, func(_ context.Context, n, _ int) (int, bool) {
		if n%2 == 0 {
			return 0, false
		}
		return n, true
	})

	sort.Ints(results)
	assert.Equal(t, []int{1, 3}, results)
}

func TestMapStopsClaimingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	items := make([]int, 100)
	var started atomic.Int64
	results := Map(ctx, items, 1, func(_ context.Context, _, i int) (int, bool) {
		started.Add(1)
		if i == 2 {
			cancel()
		}
		return i, true
	})

	// The worker stops claiming new items once the context is canceled;
	// items already claimed still complete.
	assert.LessOrEqual(t, started.Load(), int64(4))
	assert.NotEmpty(t, results)
}

func TestMapEmptyItems(t *testing.T) {
	results := Map(context.Background(), nil, 4, func(_ context.Context, n, _ int) (int, bool) {
		return n, true
	})
	assert.Nil(t, results)
}
