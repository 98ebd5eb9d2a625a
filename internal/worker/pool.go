package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Map runs fn over items with at most concurrency calls in flight.
//
// Workers share an atomic cursor over the index space; each worker claims
// the next unclaimed index and writes its result into a preallocated slot
// array. Output order therefore always matches input order regardless of
// completion timing, and no locking is needed because every worker owns
// disjoint indices.
func Map[S, R any](ctx context.Context, items []S, concurrency int, fn func(ctx context.Context, idx int, item S) R) []R {
	if len(items) == 0 {
		return []R{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	results := make([]R, len(items))
	var cursor atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(items) {
					return
				}
				results[i] = fn(ctx, i, items[i])
			}
		}()
	}

	wg.Wait()
	return results
}
