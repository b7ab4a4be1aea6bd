package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll runs one simulation per configuration, concurrently, each on its own
// copy of initial. Results are returned in the order of cfgs. A limit <= 0
// leaves concurrency unbounded.
func RunAll(ctx context.Context, initial *Ensemble, cfgs []Config, limit int, setup func(*Simulator)) ([]*Result, error) {
	results := make([]*Result, len(cfgs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, cfg := range cfgs {
		snapshot := initial.Clone()
		g.Go(func() error {
			s, err := New(cfg)
			if err != nil {
				return err
			}
			if setup != nil {
				setup(s)
			}
			res, err := s.Run(ctx, snapshot)
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
	return results, nil
}
