// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package viewer exposes the two entry points the dashboard calls: the
// county-vs-state comparison table and the tract map snapshots. All
// selection errors are reported before any request reaches the census API.
package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/internal/fetch"
	"github.com/pdiddy/census-viewer/internal/reshape"
	"github.com/pdiddy/census-viewer/pkg/types"
)

// MapPeriodGap is the number of years between the past and present tract
// snapshots.
const MapPeriodGap = 5

// YearProber reports whether a dataset year is published.
// *census.Client satisfies it.
type YearProber interface {
	Available(ctx context.Context, year int) (bool, error)
}

// Viewer builds dashboard tables from an immutable catalog.
type Viewer struct {
	cat   *catalog.Catalog
	sched *fetch.Scheduler
	probe YearProber
	cfg   types.CensusConfig
	now   func() time.Time

	mu     sync.Mutex
	latest int
}

// New returns a Viewer. probe may be nil when cfg.LatestYear is set.
func New(cat *catalog.Catalog, dl fetch.Downloader, probe YearProber, cfg types.CensusConfig) *Viewer {
	cfg = cfg.WithDefaults()
	return &Viewer{
		cat:   cat,
		sched: &fetch.Scheduler{Downloader: dl, Workers: cfg.Workers},
		probe: probe,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Catalog returns the catalog the viewer resolves names against.
func (v *Viewer) Catalog() *catalog.Catalog { return v.cat }

// BuildDataframe returns the translated county-vs-state table for the last
// ComparisonYears years. states may repeat one state per county but must
// not name more than one distinct state.
func (v *Viewer) BuildDataframe(ctx context.Context, countyNames, states, categories []string) (*types.MergedTable, error) {
	state, err := v.singleState(states)
	if err != nil {
		return nil, err
	}
	counties, err := v.resolveCounties(state, countyNames)
	if err != nil {
		return nil, err
	}
	parts, err := fetch.Select(v.cat, categories...)
	if err != nil {
		return nil, err
	}

	latest, err := v.LatestYear(ctx)
	if err != nil {
		return nil, err
	}
	years := make([]int, v.cfg.ComparisonYears)
	for i := range years {
		years[i] = latest - v.cfg.ComparisonYears + 1 + i
	}

	units := fetch.PlanCountyState(state.FIPS, fipsOf(counties), parts, years, v.cfg.APIKey)
	results, err := v.sched.Run(ctx, units)
	if err != nil {
		return nil, err
	}

	table, err := reshape.CountyState(results, counties)
	if err != nil {
		return nil, err
	}
	if err := reshape.Translate(table, v.cat); err != nil {
		return nil, err
	}
	return table, nil
}

// BuildMappingDF returns the present and past tract snapshots, MapPeriodGap
// years apart, for every listed county.
func (v *Viewer) BuildMappingDF(ctx context.Context, countyNames []string, stateName string, categories []string) (*types.TractSnapshot, error) {
	state, err := v.cat.State(stateName)
	if err != nil {
		return nil, err
	}
	counties, err := v.resolveCounties(state, countyNames)
	if err != nil {
		return nil, err
	}
	parts, err := fetch.Select(v.cat, categories...)
	if err != nil {
		return nil, err
	}

	present, err := v.LatestYear(ctx)
	if err != nil {
		return nil, err
	}
	past := present - MapPeriodGap
	codes := fipsOf(counties)

	units := fetch.PlanTracts(state.FIPS, codes, parts, []int{past, present}, v.cfg.APIKey)
	results, err := v.sched.Run(ctx, units)
	if err != nil {
		return nil, err
	}

	presentTable, pastTable, err := reshape.Tracts(results, past, present)
	if err != nil {
		return nil, err
	}
	return &types.TractSnapshot{
		Present:     presentTable,
		Past:        pastTable,
		StateCode:   state.FIPS,
		CountyCodes: codes,
	}, nil
}

// LatestYear returns the most recent published period. A configured
// LatestYear wins. Otherwise the API is probed from last year back at most
// YearProbeDepth years; when no probe confirms a year the result falls back
// to two years ago and is not remembered.
func (v *Viewer) LatestYear(ctx context.Context) (int, error) {
	if v.cfg.LatestYear > 0 {
		return v.cfg.LatestYear, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.latest > 0 {
		return v.latest, nil
	}

	start := v.now().Year() - 1
	if v.probe != nil {
		for year := start; year > start-v.cfg.YearProbeDepth; year-- {
			ok, err := v.probe.Available(ctx, year)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			if err == nil && ok {
				v.latest = year
				return year, nil
			}
		}
	}
	return start - 1, nil
}

func (v *Viewer) singleState(states []string) (catalog.State, error) {
	if len(states) == 0 {
		return catalog.State{}, fmt.Errorf("%w: no state selected", types.ErrEmptySelection)
	}
	var chosen catalog.State
	for i, name := range states {
		s, err := v.cat.State(name)
		if err != nil {
			return catalog.State{}, err
		}
		if i > 0 && s.FIPS != chosen.FIPS {
			return catalog.State{}, fmt.Errorf("%w: %s and %s", types.ErrMultipleStates, chosen.Name, s.Name)
		}
		chosen = s
	}
	return chosen, nil
}

// resolveCounties maps names to columns, keeping the caller's spelling as
// the label and dropping repeats.
func (v *Viewer) resolveCounties(state catalog.State, names []string) ([]reshape.Column, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no county selected", types.ErrEmptySelection)
	}
	var cols []reshape.Column
	seen := make(map[string]bool)
	for _, name := range names {
		c, err := v.cat.County(state.Name, name)
		if err != nil {
			return nil, err
		}
		if seen[c.FIPS] {
			continue
		}
		seen[c.FIPS] = true
		cols = append(cols, reshape.Column{Label: name, FIPS: c.FIPS})
	}
	return cols, nil
}

func fipsOf(cols []reshape.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.FIPS
	}
	return out
}
