// Package workerpool provides bounded concurrent processing.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most workerCount calls in flight and
// returns the results in input order. The first error cancels the context
// passed to the remaining calls and is returned.
func Map[T, R any](ctx context.Context, workerCount int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if workerCount < 1 {
		workerCount = 1
	}
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
