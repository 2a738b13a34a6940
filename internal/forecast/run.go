package forecast

import (
	"context"
	"sort"

	"github.com/Veraticus/adoption-forecast/internal/model"
	"golang.org/x/sync/errgroup"
)

// Keys returns every scenario key for the horizon in canonical order.
func Keys(horizon int) []model.ScenarioKey {
	keys := make([]model.ScenarioKey, 0, horizon*len(model.EventTypes()))
	for _, t := range model.EventTypes() {
		for year := 1; year <= horizon; year++ {
			keys = append(keys, model.ScenarioKey{Type: t, Year: year})
		}
	}
	return keys
}

// Scenario simulates a single scenario and aggregates its ownership trajectory.
func (s *Simulator) Scenario(key model.ScenarioKey) (model.Scenario, error) {
	purchases, err := s.NewPurchases(key)
	if err != nil {
		return model.Scenario{}, err
	}
	return model.Scenario{
		Key:          key,
		NewPurchases: purchases,
		Cumulative:   Accumulate(s.inputs.InitialOwnership, purchases),
	}, nil
}

// RunOptions controls RunAll.
type RunOptions struct {
	// OnScenario is called once per finished scenario. It may be called
	// from several goroutines when Workers > 1.
	OnScenario func(model.Scenario)
	// Workers bounds concurrent scenario evaluation. Values below 1 mean 1.
	Workers int
}

// RunAll evaluates every scenario of the horizon. Scenarios are independent,
// so they are fanned out over a bounded worker group; the result is always in
// canonical order. Either every scenario is returned or none is.
func (s *Simulator) RunAll(ctx context.Context, opts RunOptions) ([]model.Scenario, error) {
	keys := Keys(s.inputs.Horizon)
	results := make([]model.Scenario, len(keys))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sc, err := s.Scenario(key)
			if err != nil {
				return err
			}
			results[i] = sc
			if opts.OnScenario != nil {
				opts.OnScenario(sc)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Key.Less(results[j].Key)
	})
	return results, nil
}
