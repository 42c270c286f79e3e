// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package viewer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/internal/census"
	"github.com/pdiddy/census-viewer/pkg/types"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	states := []catalog.State{
		{Name: "Alabama", FIPS: "01", Counties: []catalog.County{{Name: "Autauga County", FIPS: "001"}, {Name: "Baldwin County", FIPS: "003"}}},
		{Name: "Texas", FIPS: "48", Counties: []catalog.County{{Name: "Harris County", FIPS: "201"}}},
	}
	vars := []catalog.Variable{
		{Code: "S2301_C04_001E", Name: "Unemployment Rate", Category: "Unemployment Rate"},
		{Code: "B17001_001E", Name: "Universe: Population", Category: "Child Poverty"},
		{Code: "B17001_004E", Name: "Male under 5 below poverty", Category: "Child Poverty", Universe: "B17001_001E"},
		{Code: "DP02_0053E", Name: "Nursery school", Category: "Child Poverty"},
	}
	c, err := catalog.New(states, vars)
	require.NoError(t, err)
	return c
}

// fakeAPI answers every request with deterministic rows: one per requested
// county, one for the state, or two tracts per county.
type fakeAPI struct {
	mu       sync.Mutex
	requests []census.Request
	err      error
}

func (f *fakeAPI) Download(_ context.Context, req census.Request) (types.Fragment, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return types.Fragment{}, f.err
	}

	values := func(base float64) []float64 {
		v := make([]float64, len(req.Codes))
		for i := range v {
			v[i] = base + float64(req.Year%100) + float64(i)/10
		}
		return v
	}
	out := types.Fragment{Year: req.Year, Table: req.Table, Codes: req.Codes}
	switch req.Scope.Level {
	case census.LevelState:
		out.Rows = append(out.Rows, types.FragmentRow{Geo: types.Geography{State: req.Scope.State}, Values: values(1000)})
	case census.LevelCounty:
		for i, c := range req.Scope.Counties {
			out.Rows = append(out.Rows, types.FragmentRow{Geo: types.Geography{State: req.Scope.State, County: c}, Values: values(float64(100 * (i + 1)))})
		}
	case census.LevelTract:
		c := req.Scope.Counties[0]
		for _, tract := range []string{"020100", "020200"} {
			out.Rows = append(out.Rows, types.FragmentRow{Geo: types.Geography{State: req.Scope.State, County: c, Tract: tract}, Values: values(10)})
		}
	}
	return out, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeProbe struct {
	published map[int]bool
	err       error
	calls     int
}

func (p *fakeProbe) Available(_ context.Context, year int) (bool, error) {
	p.calls++
	if p.err != nil {
		return false, p.err
	}
	return p.published[year], nil
}

func newViewer(t *testing.T, api *fakeAPI, probe YearProber, latest int) *Viewer {
	t.Helper()
	v := New(testCatalog(t), api, probe, types.CensusConfig{APIKey: "k", LatestYear: latest})
	v.now = func() time.Time { return time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC) }
	return v
}

// --- BuildDataframe ---

func TestBuildDataframeUnemploymentRate(t *testing.T) {
	api := &fakeAPI{}
	v := newViewer(t, api, nil, 2019)

	table, err := v.BuildDataframe(context.Background(), []string{"Autauga County"}, []string{"Alabama"}, []string{"Unemployment Rate"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Autauga County", types.StateColumn}, table.Columns)
	require.Len(t, table.Rows, 5)
	assert.Equal(t, []int{2015, 2016, 2017, 2018, 2019}, table.Years())
	for _, r := range table.Rows {
		assert.Equal(t, types.VariableCode("S2301_C04_001E"), r.Code)
		assert.Equal(t, "Unemployment Rate", r.Variable)
		assert.Equal(t, "Unemployment Rate", r.Category)
		assert.Equal(t, []float64{100 + float64(r.Year%100), 1000 + float64(r.Year%100)}, r.Values)
	}
	// Five units, each a county and a state request.
	assert.Equal(t, 10, api.calls())
	for _, req := range api.requests {
		assert.Equal(t, "k", req.Key)
		assert.Equal(t, "01", req.Scope.State)
	}
}

func TestBuildDataframeSeveralTableTypes(t *testing.T) {
	api := &fakeAPI{}
	v := newViewer(t, api, nil, 2019)

	table, err := v.BuildDataframe(context.Background(),
		[]string{"baldwin county", "Autauga County", "Baldwin County"},
		[]string{"Alabama", "alabama", "Alabama"},
		[]string{"Child Poverty"})
	require.NoError(t, err)

	assert.Equal(t, []string{"baldwin county", "Autauga County", types.StateColumn}, table.Columns)
	assert.Len(t, table.Rows, 5*3)
	// Detail and profile partitions, five years, two requests each.
	assert.Equal(t, 20, api.calls())
}

func TestBuildDataframeConfigErrorsMakeNoCalls(t *testing.T) {
	tests := []struct {
		name       string
		counties   []string
		states     []string
		categories []string
		target     error
	}{
		{"unknown category", []string{"Autauga County"}, []string{"Alabama"}, []string{"Nope"}, types.ErrUnknownCategory},
		{"unknown state", []string{"Autauga County"}, []string{"Atlantis"}, []string{"Unemployment Rate"}, types.ErrUnknownState},
		{"unknown county", []string{"Harris County"}, []string{"Alabama"}, []string{"Unemployment Rate"}, types.ErrUnknownCounty},
		{"two states", []string{"Autauga County"}, []string{"Alabama", "Texas"}, []string{"Unemployment Rate"}, types.ErrMultipleStates},
		{"no state", []string{"Autauga County"}, nil, []string{"Unemployment Rate"}, types.ErrEmptySelection},
		{"no county", nil, []string{"Alabama"}, []string{"Unemployment Rate"}, types.ErrEmptySelection},
		{"no category", []string{"Autauga County"}, []string{"Alabama"}, nil, types.ErrEmptySelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			probe := &fakeProbe{published: map[int]bool{2020: true}}
			v := newViewer(t, api, probe, 0)

			_, err := v.BuildDataframe(context.Background(), tt.counties, tt.states, tt.categories)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, types.IsConfigError(err))
			assert.Zero(t, api.calls())
			assert.Zero(t, probe.calls)
		})
	}
}

func TestBuildDataframeUpstreamFailure(t *testing.T) {
	api := &fakeAPI{err: fmt.Errorf("%w: HTTP 503", types.ErrUpstream)}
	v := newViewer(t, api, nil, 2019)

	table, err := v.BuildDataframe(context.Background(), []string{"Autauga County"}, []string{"Alabama"}, []string{"Unemployment Rate"})
	assert.Nil(t, table)
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.False(t, types.IsConfigError(err))
}

// --- BuildMappingDF ---

func TestBuildMappingDF(t *testing.T) {
	api := &fakeAPI{}
	v := newViewer(t, api, nil, 2019)

	snap, err := v.BuildMappingDF(context.Background(), []string{"Autauga County", "Baldwin County"}, "Alabama", []string{"Unemployment Rate"})
	require.NoError(t, err)

	assert.Equal(t, "01", snap.StateCode)
	assert.Equal(t, []string{"001", "003"}, snap.CountyCodes)
	assert.Equal(t, 2019, snap.Present.Year)
	assert.Equal(t, 2014, snap.Past.Year)

	for _, tbl := range []*types.TractTable{snap.Present, snap.Past} {
		require.Len(t, tbl.Rows, 4)
		for _, r := range tbl.Rows {
			assert.Contains(t, []string{"020100", "020200"}, r.TRACTCE)
			assert.Equal(t, "01"+r.Geo.County+r.TRACTCE, r.GEOID)
		}
	}
	// Two periods, one partition, two counties.
	assert.Equal(t, 4, api.calls())
	for _, req := range api.requests {
		assert.Equal(t, census.LevelTract, req.Scope.Level)
	}
}

func TestBuildMappingDFUnknownCategory(t *testing.T) {
	api := &fakeAPI{}
	v := newViewer(t, api, nil, 2019)

	_, err := v.BuildMappingDF(context.Background(), []string{"Autauga County"}, "Alabama", []string{"Nope"})
	assert.ErrorIs(t, err, types.ErrUnknownCategory)
	assert.Zero(t, api.calls())
}

// --- latest year ---

func TestLatestYearConfigured(t *testing.T) {
	probe := &fakeProbe{}
	v := newViewer(t, &fakeAPI{}, probe, 2017)

	year, err := v.LatestYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2017, year)
	assert.Zero(t, probe.calls)
}

func TestLatestYearProbesAndMemoizes(t *testing.T) {
	probe := &fakeProbe{published: map[int]bool{2019: true, 2018: true}}
	v := newViewer(t, &fakeAPI{}, probe, 0)

	year, err := v.LatestYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2019, year)
	assert.Equal(t, 2, probe.calls, "2020 then 2019")

	year, err = v.LatestYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2019, year)
	assert.Equal(t, 2, probe.calls)
}

func TestLatestYearFallback(t *testing.T) {
	tests := []struct {
		name  string
		probe *fakeProbe
	}{
		{"nothing published", &fakeProbe{}},
		{"probe errors", &fakeProbe{err: fmt.Errorf("%w: HTTP 500", types.ErrUpstream)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViewer(t, &fakeAPI{}, tt.probe, 0)

			year, err := v.LatestYear(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2019, year)
			assert.Equal(t, types.DefaultYearProbeDepth, tt.probe.calls)

			// The fallback is not remembered.
			_, err = v.LatestYear(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2*types.DefaultYearProbeDepth, tt.probe.calls)
		})
	}
}

func TestLatestYearWithoutProbe(t *testing.T) {
	v := newViewer(t, &fakeAPI{}, nil, 0)
	year, err := v.LatestYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2019, year)
}

func TestLatestYearCancelled(t *testing.T) {
	v := newViewer(t, &fakeAPI{}, &fakeProbe{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.LatestYear(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
