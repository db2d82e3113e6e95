// Package scheduler runs batches of crawl requests with bounded concurrency.
package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vtrpza/crawled/pkg/types"
)

// maxConcurrency is the hard ceiling on simultaneous crawls regardless of
// caller configuration.
const maxConcurrency = 8

// Task crawls a single request. A returned error marks that slot failed; it
// never aborts the rest of the batch.
type Task func(ctx context.Context, req types.CrawlRequest) (types.CrawlResult, error)

// Clamp bounds a requested concurrency to [1, maxConcurrency].
func Clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxConcurrency {
		return maxConcurrency
	}
	return n
}

// RunBatch executes one task per request with at most `concurrency` in
// flight. Results come back in request order: results[i] always corresponds
// to requests[i]. Task failures are recorded as error-status results in their
// slot; RunBatch itself errors only when the context is cancelled.
func RunBatch(ctx context.Context, requests []types.CrawlRequest, concurrency int, task Task) ([]types.CrawlResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	if task == nil {
		return nil, fmt.Errorf("scheduler: nil task")
	}

	results := make([]types.CrawlResult, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Clamp(concurrency))

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = errorResult(req, err)
				return nil
			}
			res, err := task(gctx, req)
			if err != nil {
				results[i] = errorResult(req, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}

	// Tasks swallow their own errors, so Wait only reflects cancellation.
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func errorResult(req types.CrawlRequest, err error) types.CrawlResult {
	return types.CrawlResult{
		Status: types.StatusError,
		URL:    req.URL,
		Intent: req.Intent,
		Error:  err.Error(),
	}
}
