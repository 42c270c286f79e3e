// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reshape stitches fetch results into the tables the dashboard
// renders: the county-vs-state comparison table and the tract snapshots.
// The aggregators never modify their inputs.
package reshape

import (
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/census-viewer/pkg/types"
)

// Column is one requested county: its FIPS code and the label used as its
// column name.
type Column struct {
	Label string
	FIPS  string
}

// CountyState merges county/state results into one table: one row per
// (year, code), one column per county followed by State. The join on code
// is an outer join, so a code reported for only one geography keeps its
// row with NaN in the other columns. Rows are sorted by year then code.
func CountyState(results []types.FetchResult, counties []Column) (*types.MergedTable, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no fetch results", types.ErrShapeMismatch)
	}
	if len(counties) == 0 {
		return nil, fmt.Errorf("%w: no counties requested", types.ErrShapeMismatch)
	}

	width := len(counties) + 1
	stateCol := len(counties)
	colByFIPS := make(map[string]int, len(counties))
	columns := make([]string, 0, width)
	for i, c := range counties {
		if _, dup := colByFIPS[c.FIPS]; dup {
			return nil, fmt.Errorf("%w: county %s requested twice", types.ErrShapeMismatch, c.FIPS)
		}
		colByFIPS[c.FIPS] = i
		columns = append(columns, c.Label)
	}
	columns = append(columns, types.StateColumn)

	type period struct {
		values map[types.VariableCode][]float64
		seen   []bool
	}
	periods := make(map[int]*period)
	cell := func(p *period, code types.VariableCode) []float64 {
		v, ok := p.values[code]
		if !ok {
			v = make([]float64, width)
			for i := range v {
				v[i] = math.NaN()
			}
			p.values[code] = v
		}
		return v
	}

	for _, res := range results {
		if res.Unit.Mode != types.ModeCountyState {
			return nil, fmt.Errorf("%w: %s is not a county/state result", types.ErrShapeMismatch, res.Unit)
		}
		p := periods[res.Unit.Year]
		if p == nil {
			p = &period{values: make(map[types.VariableCode][]float64), seen: make([]bool, width)}
			periods[res.Unit.Year] = p
		}

		for ri, row := range res.Local.Rows {
			col, ok := colByFIPS[row.Geo.County]
			if !ok {
				continue
			}
			p.seen[col] = true
			for _, code := range res.Local.Codes {
				cell(p, code)[col] = res.Local.Value(ri, code)
			}
		}
		if len(res.State.Rows) > 0 {
			p.seen[stateCol] = true
			for _, code := range res.State.Codes {
				cell(p, code)[stateCol] = res.State.Value(0, code)
			}
		}
	}

	years := make([]int, 0, len(periods))
	for year := range periods {
		years = append(years, year)
	}
	sort.Ints(years)

	table := &types.MergedTable{Columns: columns}
	for _, year := range years {
		p := periods[year]
		for i, ok := range p.seen {
			if !ok {
				return nil, fmt.Errorf("%w: %d: no rows for %s", types.ErrShapeMismatch, year, columns[i])
			}
		}
		if len(p.values) == 0 {
			return nil, fmt.Errorf("%w: %d: no variable codes returned", types.ErrShapeMismatch, year)
		}

		codes := make([]types.VariableCode, 0, len(p.values))
		for code := range p.values {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		for _, code := range codes {
			table.Rows = append(table.Rows, types.Row{Code: code, Year: year, Values: p.values[code]})
		}
	}
	return table, nil
}
