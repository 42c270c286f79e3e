// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for census-viewer: catalog
// identifiers, fetch units, result fragments and the merged tables handed
// to the dashboard.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// VariableCode is an opaque upstream identifier such as "B17001_004E".
type VariableCode string

// TableType is the upstream table family a VariableCode belongs to. One API
// request may only carry codes of a single TableType.
type TableType string

const (
	TableDetail   TableType = "detail"
	TableSubject  TableType = "subject"
	TableProfile  TableType = "profile"
	TableCProfile TableType = "cprofile"
)

// tablePrefixes is checked in order; the prefixes are disjoint in the
// upstream catalog.
var tablePrefixes = []struct {
	prefix string
	table  TableType
}{
	{"B", TableDetail},
	{"S", TableSubject},
	{"DP", TableProfile},
	{"CP", TableCProfile},
}

// TableTypes returns the four table types in selection order.
func TableTypes() []TableType {
	out := make([]TableType, len(tablePrefixes))
	for i, p := range tablePrefixes {
		out[i] = p.table
	}
	return out
}

// TableTypeOf returns the table type implied by the code's prefix.
func TableTypeOf(code VariableCode) (TableType, bool) {
	for _, p := range tablePrefixes {
		if strings.HasPrefix(string(code), p.prefix) {
			return p.table, true
		}
	}
	return "", false
}

// Partition is the set of selected codes sharing one table type.
type Partition struct {
	Table TableType      `json:"table"`
	Codes []VariableCode `json:"codes"`
}

// Geography identifies one response row: a state, a county within it, or a
// tract within a county. Codes are zero-padded FIPS strings.
type Geography struct {
	Name   string `json:"name,omitempty"`
	State  string `json:"state"`
	County string `json:"county,omitempty"`
	Tract  string `json:"tract,omitempty"`
}

// GEOID returns the concatenated FIPS identifier (e.g. "01001020100").
func (g Geography) GEOID() string {
	return g.State + g.County + g.Tract
}

// String renders the geography as "state:01 county:001 tract:020100".
func (g Geography) String() string {
	parts := []string{"state:" + g.State}
	if g.County != "" {
		parts = append(parts, "county:"+g.County)
	}
	if g.Tract != "" {
		parts = append(parts, "tract:"+g.Tract)
	}
	return strings.Join(parts, " ")
}

// FetchMode selects how a FetchUnit is scoped.
type FetchMode int

const (
	// ModeCountyState fetches the selected counties and their state.
	ModeCountyState FetchMode = iota
	// ModeTract fetches every tract in one county.
	ModeTract
)

func (m FetchMode) String() string {
	switch m {
	case ModeCountyState:
		return "county-state"
	case ModeTract:
		return "tract"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// FetchUnit is one independently dispatchable piece of work. Units share no
// state; the API key is carried by value.
type FetchUnit struct {
	Index    int
	Mode     FetchMode
	Year     int
	Table    TableType
	Codes    []VariableCode
	State    string
	Counties []string
	APIKey   string
}

// String identifies the unit in error messages without exposing the key.
func (u FetchUnit) String() string {
	return fmt.Sprintf("unit %d (%s %d %s state:%s county:%s)",
		u.Index, u.Mode, u.Year, u.Table, u.State, strings.Join(u.Counties, ","))
}

// Fragment is the table returned by one upstream call: rows keyed by
// geography, one value column per code. Missing cells are NaN.
type Fragment struct {
	Year  int
	Table TableType
	Codes []VariableCode
	Rows  []FragmentRow
}

// FragmentRow holds the values of one geography, aligned with Fragment.Codes.
type FragmentRow struct {
	Geo    Geography
	Values []float64
}

// Value returns the value of code in row, or NaN when absent.
func (f Fragment) Value(row int, code VariableCode) float64 {
	for i, c := range f.Codes {
		if c == code && i < len(f.Rows[row].Values) {
			return f.Rows[row].Values[i]
		}
	}
	return math.NaN()
}

// FetchResult pairs a unit with its fragments. Local is county-scoped in
// ModeCountyState and tract-scoped in ModeTract; State is only set in
// ModeCountyState.
type FetchResult struct {
	Unit  FetchUnit
	Local Fragment
	State Fragment
}

// StateColumn is the MergedTable column holding state-level values.
const StateColumn = "State"

// MergedTable is the county/state comparison view: one row per
// (Year, VariableCode), one value column per requested county plus State.
type MergedTable struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Row is one variable in one year. Values align with MergedTable.Columns.
type Row struct {
	Code     VariableCode `json:"code"`
	Year     int          `json:"year"`
	Values   []float64    `json:"-"`
	Variable string       `json:"variable"`
	Category string       `json:"category"`
}

// Column returns the index of name in t.Columns, or -1.
func (t *MergedTable) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Years returns the distinct years in row order.
func (t *MergedTable) Years() []int {
	var years []int
	seen := make(map[int]bool)
	for _, r := range t.Rows {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	return years
}

// Categories returns the distinct categories in row order.
func (t *MergedTable) Categories() []string {
	var cats []string
	seen := make(map[string]bool)
	for _, r := range t.Rows {
		if r.Category != "" && !seen[r.Category] {
			seen[r.Category] = true
			cats = append(cats, r.Category)
		}
	}
	return cats
}

// MarshalJSON renders Values aligned with the table columns, NaN as null.
func (r Row) MarshalJSON() ([]byte, error) {
	type plain Row
	return json.Marshal(struct {
		plain
		Values []*float64 `json:"values"`
	}{plain: plain(r), Values: nullable(r.Values)})
}

// TractTable is one snapshot of the tract map view.
type TractTable struct {
	Year  int            `json:"year"`
	Codes []VariableCode `json:"codes"`
	Rows  []TractRow     `json:"rows"`
}

// TractRow is one tract. TRACTCE is the 6-digit tract id used to join
// boundary polygons; Values align with TractTable.Codes.
type TractRow struct {
	Geo     Geography `json:"geo"`
	TRACTCE string    `json:"TRACTCE"`
	GEOID   string    `json:"GEOID"`
	Values  []float64 `json:"-"`
}

// MarshalJSON renders NaN values as null.
func (r TractRow) MarshalJSON() ([]byte, error) {
	type plain TractRow
	return json.Marshal(struct {
		plain
		Values []*float64 `json:"values"`
	}{plain: plain(r), Values: nullable(r.Values)})
}

// Value returns the value of code in row i, or NaN when absent.
func (t *TractTable) Value(i int, code VariableCode) float64 {
	for j, c := range t.Codes {
		if c == code && j < len(t.Rows[i].Values) {
			return t.Rows[i].Values[j]
		}
	}
	return math.NaN()
}

// TractSnapshot is the result of the map view: present and past snapshots
// plus the resolved codes used to scope them.
type TractSnapshot struct {
	Present     *TractTable `json:"present"`
	Past        *TractTable `json:"past"`
	StateCode   string      `json:"state_code"`
	CountyCodes []string    `json:"county_codes"`
}

func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) && !math.IsInf(values[i], 0) {
			v := values[i]
			out[i] = &v
		}
	}
	return out
}
