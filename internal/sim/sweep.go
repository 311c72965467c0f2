package sim

import (
	"context"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

// Builder creates a fresh runner for one sweep point.
type Builder func(i int) (*Runner, error)

// Sweep runs n independently built worlds concurrently and returns their
// results in index order.
func Sweep(ctx context.Context, n, workers int, build Builder, cfg dynamo.Config) ([]*dynamo.Result, error) {
	e := dynamo.NewEnsemble(workers)
	for i := 0; i < n; i++ {
		e.Add(func(ctx context.Context) (*dynamo.Result, error) {
			r, err := build(i)
			if err != nil {
				return nil, err
			}
			return r.Run(ctx, cfg)
		})
	}
	return e.Run(ctx)
}
