package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/scrapegate/scrapegate/internal/core/domain"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultBatchConcurrency is used when the caller passes 0 or less.
	DefaultBatchConcurrency = 5
	// MaxBatchConcurrency caps the pool so a single batch cannot stampede
	// the upstream.
	MaxBatchConcurrency = 20
)

// ClampConcurrency normalizes a caller-supplied concurrency into
// [1, MaxBatchConcurrency], defaulting when unset.
func ClampConcurrency(n int) int {
	if n <= 0 {
		return DefaultBatchConcurrency
	}
	if n > MaxBatchConcurrency {
		return MaxBatchConcurrency
	}
	return n
}

// RunBatch runs op over every item under a bounded worker pool and returns
// one result per item, index-aligned with the input. A failing item (error or
// panic) yields an error result at its index and never affects siblings.
// RunBatch itself never retries; retry policy belongs to op.
func RunBatch[T any](ctx context.Context, items []T, concurrency int, op func(ctx context.Context, item T) (map[string]any, error)) []domain.BatchItemResult {
	results := make([]domain.BatchItemResult, len(items))
	if len(items) == 0 {
		return results
	}

	sem := semaphore.NewWeighted(int64(ClampConcurrency(concurrency)))
	var wg sync.WaitGroup

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context gone: mark this and remaining items without running them.
			for j := i; j < len(items); j++ {
				results[j] = domain.BatchItemResult{
					Index: j,
					Error: domain.NewError(domain.KindTimeout, "batch canceled before item started", map[string]any{"cause": err.Error()}),
				}
			}
			break
		}

		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()
			defer sem.Release(1)
			results[idx] = runOne(ctx, idx, it, op)
		}(i, item)
	}

	wg.Wait()
	return results
}

func runOne[T any](ctx context.Context, idx int, item T, op func(ctx context.Context, item T) (map[string]any, error)) (res domain.BatchItemResult) {
	res.Index = idx
	defer func() {
		if r := recover(); r != nil {
			res.OK = false
			res.Output = nil
			res.Error = domain.NewError(domain.KindUpstreamInternal, fmt.Sprintf("batch item panicked: %v", r), nil)
		}
	}()

	out, err := op(ctx, item)
	if err != nil {
		res.Error = domain.AsErrorDetail(err)
		return res
	}
	res.OK = true
	res.Output = out
	return res
}

// BatchOutput renders results for a tool output envelope.
func BatchOutput(results []domain.BatchItemResult) map[string]any {
	items := make([]any, len(results))
	for i, r := range results {
		item := map[string]any{"index": r.Index, "ok": r.OK}
		if r.OK {
			item["output"] = r.Output
		} else {
			item["error"] = r.Error
		}
		items[i] = item
	}
	return map[string]any{"results": items}
}
