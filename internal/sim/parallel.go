package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

// Factory builds a fresh vehicle for one batch member.
type Factory func() (Vehicle, error)

// Batch runs independent vehicles concurrently. Members share nothing;
// each gets its own Simulator with metrics from newMetrics.
type Batch struct {
	base    *Simulator
	workers int
}

func NewBatch(s *Simulator, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{base: s, workers: workers}
}

// Run returns results in factory order. The first error wins.
func (b *Batch) Run(ctx context.Context, factories []Factory, cfg Config, newMetrics func() []dynamo.Metric) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, len(factories))
	errs := make([]error, len(factories))

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	for i, build := range factories {
		wg.Add(1)
		go func(idx int, build Factory) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			v, err := build()
			if err != nil {
				errs[idx] = fmt.Errorf("batch member %d: %w", idx, err)
				return
			}

			sim := New(b.base.logger.With().Int("member", idx).Logger())
			if newMetrics != nil {
				for _, m := range newMetrics() {
					sim.AddMetric(m)
				}
			}
			results[idx], errs[idx] = sim.Run(ctx, v, cfg)
		}(i, build)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
