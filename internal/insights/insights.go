// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package insights derives chart series and short narrative summaries from
// a translated county-vs-state table.
package insights

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/pkg/types"
)

// VariableLookup resolves a code to its catalog entry.
type VariableLookup interface {
	Variable(code types.VariableCode) (catalog.Variable, error)
}

// Point is one year of a series. NaN marks a missing value.
type Point struct {
	Year   int     `json:"year"`
	County float64 `json:"-"`
	State  float64 `json:"-"`
}

// MarshalJSON renders missing values as null.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year   int      `json:"year"`
		County *float64 `json:"county"`
		State  *float64 `json:"state"`
	}{p.Year, nullable(p.County), nullable(p.State)})
}

// Series is one chart: a variable, or its share of its universe when
// Percent is set, for the first county against the state.
type Series struct {
	Code      types.VariableCode `json:"code"`
	Variable  string             `json:"variable"`
	Category  string             `json:"category"`
	Percent   bool               `json:"percent"`
	Points    []Point            `json:"points"`
	Sentences []string           `json:"sentences"`
}

// Report is the insight page for one county.
type Report struct {
	County string   `json:"county"`
	Years  []int    `json:"years"`
	Series []Series `json:"series"`
}

// Build produces one series per variable in table, plus a percentage
// series for every variable whose universe is also in the table.
func Build(table *types.MergedTable, cat VariableLookup) (*Report, error) {
	stateCol := table.Column(types.StateColumn)
	if stateCol < 1 {
		return nil, fmt.Errorf("%w: table needs a county column before %s", types.ErrShapeMismatch, types.StateColumn)
	}
	county := table.Columns[0]

	type cell struct{ county, state float64 }
	byCode := make(map[types.VariableCode]map[int]cell)
	var codes []types.VariableCode
	for _, r := range table.Rows {
		if _, ok := byCode[r.Code]; !ok {
			byCode[r.Code] = make(map[int]cell)
			codes = append(codes, r.Code)
		}
		byCode[r.Code][r.Year] = cell{r.Values[0], r.Values[stateCol]}
	}

	years := table.Years()
	report := &Report{County: county, Years: years}
	value := func(code types.VariableCode, year int) cell {
		if c, ok := byCode[code][year]; ok {
			return c
		}
		return cell{math.NaN(), math.NaN()}
	}

	for _, code := range codes {
		v, err := cat.Variable(code)
		if err != nil {
			return nil, fmt.Errorf("insights for %s: %w", code, err)
		}

		raw := Series{Code: code, Variable: v.Name, Category: v.Category}
		for _, y := range years {
			c := value(code, y)
			raw.Points = append(raw.Points, Point{Year: y, County: round2(c.county), State: round2(c.state)})
		}
		raw.Sentences = narrate(raw, county)
		report.Series = append(report.Series, raw)

		if v.Universe == "" || v.Universe == code {
			continue
		}
		if _, ok := byCode[v.Universe]; !ok {
			continue
		}
		pct := Series{Code: code, Variable: v.Name, Category: v.Category, Percent: true}
		for _, y := range years {
			c, u := value(code, y), value(v.Universe, y)
			pct.Points = append(pct.Points, Point{
				Year:   y,
				County: round2(share(c.county, u.county)),
				State:  round2(share(c.state, u.state)),
			})
		}
		pct.Sentences = narrate(pct, county)
		report.Series = append(report.Series, pct)
	}
	return report, nil
}

// narrate returns the trend sentence for the county and the county-vs-state
// comparison for the first and last year. Sentences whose inputs are
// missing are left out.
func narrate(s Series, county string) []string {
	if len(s.Points) == 0 {
		return nil
	}
	name := displayName(s.Variable)
	unit := "."
	if s.Percent {
		unit = " percentage points."
	}

	var out []string
	first, last := s.Points[0], s.Points[len(s.Points)-1]
	if len(s.Points) > 1 && !math.IsNaN(first.County) && !math.IsNaN(last.County) {
		subject := "the number of " + name
		if s.Percent {
			subject = "the " + name
		}
		lead := fmt.Sprintf("In the last %d years, %s in %s", len(s.Points), subject, county)
		switch d := round2(last.County - first.County); {
		case d > 0:
			out = append(out, lead+" increased by "+format(d)+unit)
		case d < 0:
			out = append(out, lead+" decreased by "+format(-d)+unit)
		default:
			out = append(out, lead+" did not change.")
		}
	}

	compare := []Point{first}
	if len(s.Points) > 1 {
		compare = append(compare, last)
	}
	for _, p := range compare {
		if math.IsNaN(p.County) || math.IsNaN(p.State) {
			continue
		}
		lead := fmt.Sprintf("In %d, the %s in %s is", p.Year, name, county)
		switch d := round2(p.County - p.State); {
		case d > 0:
			out = append(out, lead+" greater than state figures by "+format(d)+unit)
		case d < 0:
			out = append(out, lead+" less than state figures by "+format(-d)+unit)
		default:
			out = append(out, lead+" equal to state figures.")
		}
	}
	return out
}

func displayName(name string) string {
	for _, prefix := range []string{"Percent of ", "Number of "} {
		if i := strings.Index(name, prefix); i >= 0 {
			return name[i+len(prefix):]
		}
	}
	return name
}

func share(part, whole float64) float64 {
	if whole == 0 || math.IsNaN(whole) || math.IsNaN(part) {
		return math.NaN()
	}
	return part / whole * 100
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
