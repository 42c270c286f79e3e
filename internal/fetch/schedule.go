// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/census-viewer/internal/census"
	"github.com/pdiddy/census-viewer/pkg/types"
)

// Downloader performs one census API request. *census.Client satisfies it;
// tests substitute a fake.
type Downloader interface {
	Download(ctx context.Context, req census.Request) (types.Fragment, error)
}

// PlanCountyState builds one unit per (year, partition). Each unit covers
// all counties plus the state.
func PlanCountyState(state string, counties []string, parts []types.Partition, years []int, key string) []types.FetchUnit {
	units := make([]types.FetchUnit, 0, len(years)*len(parts))
	for _, year := range years {
		for _, p := range parts {
			units = append(units, types.FetchUnit{
				Index:    len(units),
				Mode:     types.ModeCountyState,
				Year:     year,
				Table:    p.Table,
				Codes:    p.Codes,
				State:    state,
				Counties: counties,
				APIKey:   key,
			})
		}
	}
	return units
}

// PlanTracts builds one unit per (year, partition, county).
func PlanTracts(state string, counties []string, parts []types.Partition, years []int, key string) []types.FetchUnit {
	units := make([]types.FetchUnit, 0, len(years)*len(parts)*len(counties))
	for _, year := range years {
		for _, p := range parts {
			for _, county := range counties {
				units = append(units, types.FetchUnit{
					Index:    len(units),
					Mode:     types.ModeTract,
					Year:     year,
					Table:    p.Table,
					Codes:    p.Codes,
					State:    state,
					Counties: []string{county},
					APIKey:   key,
				})
			}
		}
	}
	return units
}

// Scheduler runs fetch units with at most Workers in flight.
type Scheduler struct {
	Downloader Downloader
	Workers    int
}

// Run executes every unit and returns their results in unit order. The
// first failure cancels the remaining units and is returned alone; no
// partial results are returned.
func (s *Scheduler) Run(ctx context.Context, units []types.FetchUnit) ([]types.FetchResult, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: nothing to fetch", types.ErrEmptySelection)
	}
	workers := s.Workers
	if workers <= 0 {
		workers = types.DefaultWorkers
	}

	results := make([]types.FetchResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range units {
		g.Go(func() error {
			res, err := s.runUnit(gctx, u)
			if err != nil {
				return fmt.Errorf("%s: %w", u, err)
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

func (s *Scheduler) runUnit(ctx context.Context, u types.FetchUnit) (types.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return types.FetchResult{}, err
	}
	res := types.FetchResult{Unit: u}

	switch u.Mode {
	case types.ModeCountyState:
		local, err := s.Downloader.Download(ctx, unitRequest(u, census.LevelCounty))
		if err != nil {
			return res, fmt.Errorf("county request: %w", err)
		}
		state, err := s.Downloader.Download(ctx, unitRequest(u, census.LevelState))
		if err != nil {
			return res, fmt.Errorf("state request: %w", err)
		}
		res.Local, res.State = local, state
	case types.ModeTract:
		local, err := s.Downloader.Download(ctx, unitRequest(u, census.LevelTract))
		if err != nil {
			return res, fmt.Errorf("tract request: %w", err)
		}
		res.Local = local
	default:
		return res, fmt.Errorf("unknown fetch mode %s", u.Mode)
	}
	return res, nil
}

func unitRequest(u types.FetchUnit, level census.Level) census.Request {
	scope := census.Scope{Level: level, State: u.State}
	if level != census.LevelState {
		scope.Counties = u.Counties
	}
	return census.Request{
		Year:  u.Year,
		Table: u.Table,
		Codes: u.Codes,
		Scope: scope,
		Key:   u.APIKey,
	}
}
