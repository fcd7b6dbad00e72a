// Package workerpool provides simple concurrent processing utilities.
package workerpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most workerCount calls in flight and returns
// the results in item order. The first error cancels the context passed to the
// remaining calls and is returned.
func Map[T, R any](
	ctx context.Context,
	workerCount int,
	items []T,
	fn func(context.Context, T) (R, error),
) ([]R, error) {
	if workerCount <= 0 {
		workerCount = 1
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fn(gctx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
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

// Process is Map for work that yields no result.
func Process[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
) error {
	_, err := Map(ctx, workerCount, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, process(ctx, item)
	})
	return err
}
