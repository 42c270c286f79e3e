// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reshape

import (
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/census-viewer/pkg/types"
)

type tractKey struct {
	state, county, tract string
}

// Tracts splits tract results into the past and present snapshots and
// merges each across table types and counties, keyed by (state, county,
// tract). Codes keep plan order; rows are sorted by GEOID.
func Tracts(results []types.FetchResult, past, present int) (presentTable, pastTable *types.TractTable, err error) {
	if past == present {
		return nil, nil, fmt.Errorf("%w: past and present are both %d", types.ErrShapeMismatch, past)
	}

	ordered := append([]types.FetchResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Unit.Index < ordered[j].Unit.Index })

	groups := map[int][]types.FetchResult{past: nil, present: nil}
	for _, res := range ordered {
		if res.Unit.Mode != types.ModeTract {
			return nil, nil, fmt.Errorf("%w: %s is not a tract result", types.ErrShapeMismatch, res.Unit)
		}
		if _, ok := groups[res.Unit.Year]; !ok {
			return nil, nil, fmt.Errorf("%w: %s is neither %d nor %d", types.ErrShapeMismatch, res.Unit, past, present)
		}
		groups[res.Unit.Year] = append(groups[res.Unit.Year], res)
	}

	if presentTable, err = mergeTracts(present, groups[present]); err != nil {
		return nil, nil, err
	}
	if pastTable, err = mergeTracts(past, groups[past]); err != nil {
		return nil, nil, err
	}
	return presentTable, pastTable, nil
}

func mergeTracts(year int, results []types.FetchResult) (*types.TractTable, error) {
	var codes []types.VariableCode
	codeCol := make(map[types.VariableCode]int)
	cells := make(map[tractKey]map[types.VariableCode]float64)
	geos := make(map[tractKey]types.Geography)

	for _, res := range results {
		frag := res.Local
		for _, code := range frag.Codes {
			if _, ok := codeCol[code]; !ok {
				codeCol[code] = len(codes)
				codes = append(codes, code)
			}
		}
		for ri, row := range frag.Rows {
			if row.Geo.Tract == "" {
				return nil, fmt.Errorf("%w: %s row %d has no tract", types.ErrShapeMismatch, res.Unit, ri)
			}
			key := tractKey{row.Geo.State, row.Geo.County, row.Geo.Tract}
			if _, ok := cells[key]; !ok {
				cells[key] = make(map[types.VariableCode]float64)
				geos[key] = row.Geo
			}
			for _, code := range frag.Codes {
				cells[key][code] = frag.Value(ri, code)
			}
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: no tracts returned for %d", types.ErrShapeMismatch, year)
	}

	table := &types.TractTable{Year: year, Codes: codes, Rows: make([]types.TractRow, 0, len(cells))}
	for key, byCode := range cells {
		values := make([]float64, len(codes))
		for i, code := range codes {
			v, ok := byCode[code]
			if !ok {
				v = math.NaN()
			}
			values[i] = v
		}
		geo := geos[key]
		table.Rows = append(table.Rows, types.TractRow{
			Geo:     geo,
			TRACTCE: geo.Tract,
			GEOID:   geo.GEOID(),
			Values:  values,
		})
	}
	sort.Slice(table.Rows, func(i, j int) bool { return table.Rows[i].GEOID < table.Rows[j].GEOID })
	return table, nil
}
