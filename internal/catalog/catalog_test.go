// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/census-viewer/pkg/types"
)

const testGeoCSV = `State,State_FIPS,County,County_FIPS,centerlat,centerlon
Alabama,1,Autauga County,1,32.53,-86.64
Alabama,1,Baldwin County,3,30.72,-87.72
Texas,48,Harris County,201,29.85,-95.39
`

const testVarsCSV = `vars,name,category,universe
B17001_001E,Universe: Population,Child Poverty,
B17001_004E,Male under 5 below poverty,Child Poverty,B17001_001E
S2301_C04_001E,Unemployment Rate,Unemployment Rate,
DP02_0053E,Nursery school,School Enrollment,
`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	states, err := ReadGeo(strings.NewReader(testGeoCSV))
	require.NoError(t, err)
	vars, err := ReadVariablesCSV(strings.NewReader(testVarsCSV))
	require.NoError(t, err)
	c, err := New(states, vars)
	require.NoError(t, err)
	return c
}

// --- loading ---

func TestReadGeoPadsFIPS(t *testing.T) {
	states, err := ReadGeo(strings.NewReader(testGeoCSV))
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.Equal(t, "Alabama", states[0].Name)
	assert.Equal(t, "01", states[0].FIPS)
	require.Len(t, states[0].Counties, 2)
	assert.Equal(t, "001", states[0].Counties[0].FIPS)
	assert.Equal(t, "003", states[0].Counties[1].FIPS)
	assert.InDelta(t, 32.53, states[0].Counties[0].Lat, 1e-9)

	assert.Equal(t, "48", states[1].FIPS)
	assert.Equal(t, "201", states[1].Counties[0].FIPS)
}

func TestReadGeoColumnOrderIndependent(t *testing.T) {
	csv := "County_FIPS,County,State_FIPS,State\n7,Bibb County,1,Alabama\n"
	states, err := ReadGeo(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "Bibb County", states[0].Counties[0].Name)
	assert.Equal(t, "007", states[0].Counties[0].FIPS)
}

func TestReadGeoErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"empty", "", "missing header"},
		{"missing column", "State,County\nAlabama,Autauga\n", "State_FIPS"},
		{"non-numeric", "State,State_FIPS,County,County_FIPS\nAlabama,AL,Autauga,1\n", "non-numeric"},
		{"too long", "State,State_FIPS,County,County_FIPS\nAlabama,1,Autauga,1001\n", "longer than 3"},
		{"conflicting state", "State,State_FIPS,County,County_FIPS\nAlabama,1,A,1\nAlabama,2,B,3\n", "has FIPS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGeo(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadVariablesYAML(t *testing.T) {
	doc := `variables:
  - code: B01003_001E
    name: Total population
    category: Total population
  - code: B17001_004E
    name: Male under 5 below poverty
    category: Child Poverty
    universe: B17001_001E
`
	vars, err := ReadVariablesYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, types.VariableCode("B01003_001E"), vars[0].Code)
	assert.Equal(t, types.VariableCode("B17001_001E"), vars[1].Universe)
}

func TestReadVariablesYAMLEmpty(t *testing.T) {
	_, err := ReadVariablesYAML(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	geo := filepath.Join(dir, "geo.csv")
	vars := filepath.Join(dir, "vars.yaml")
	require.NoError(t, os.WriteFile(geo, []byte(testGeoCSV), 0o644))
	require.NoError(t, os.WriteFile(vars, []byte("variables:\n  - {code: S2301_C04_001E, name: Unemployment Rate, category: Unemployment Rate}\n"), 0o644))

	c, err := Load(types.CatalogConfig{GeoFile: geo, VariablesFile: vars})
	require.NoError(t, err)
	assert.Equal(t, []string{"Unemployment Rate"}, c.Categories())
	assert.Equal(t, []string{"Alabama", "Texas"}, c.States())
}

func TestLoadRequiresPaths(t *testing.T) {
	_, err := Load(types.CatalogConfig{})
	assert.Error(t, err)
}

func TestLoadSampleData(t *testing.T) {
	c, err := Load(types.CatalogConfig{
		GeoFile:       filepath.Join("..", "..", "data", "state_county_fips.csv"),
		VariablesFile: filepath.Join("..", "..", "data", "census_vars.csv"),
	})
	require.NoError(t, err)

	codes, err := c.Codes("Unemployment Rate")
	require.NoError(t, err)
	assert.Len(t, codes, 1)

	for _, v := range c.Variables() {
		_, ok := types.TableTypeOf(v.Code)
		assert.True(t, ok, "sample code %s has no table type", v.Code)
		if v.Universe != "" {
			_, err := c.Variable(v.Universe)
			assert.NoError(t, err, "universe of %s", v.Code)
		}
	}
}

// --- construction ---

func TestNewRejectsBadVariables(t *testing.T) {
	tests := []struct {
		name string
		vars []Variable
	}{
		{"no code", []Variable{{Name: "x", Category: "c"}}},
		{"no category", []Variable{{Code: "B1", Name: "x"}}},
		{"duplicate", []Variable{{Code: "B1", Category: "c"}, {Code: "B1", Category: "d"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, tt.vars)
			assert.Error(t, err)
		})
	}
}

// --- lookups ---

func TestStateAndCountyLookup(t *testing.T) {
	c := testCatalog(t)

	s, err := c.State("alabama")
	require.NoError(t, err)
	assert.Equal(t, "01", s.FIPS)

	ct, err := c.County("Alabama", "  baldwin   county ")
	require.NoError(t, err)
	assert.Equal(t, "003", ct.FIPS)

	_, err = c.State("Atlantis")
	assert.ErrorIs(t, err, types.ErrUnknownState)

	_, err = c.County("Alabama", "Harris County")
	assert.ErrorIs(t, err, types.ErrUnknownCounty)

	counties, err := c.Counties("Texas")
	require.NoError(t, err)
	require.Len(t, counties, 1)
	assert.Equal(t, "Harris County", counties[0].Name)
}

func TestCategoriesSortedUnique(t *testing.T) {
	c := testCatalog(t)
	assert.Equal(t, []string{"Child Poverty", "School Enrollment", "Unemployment Rate"}, c.Categories())
	assert.True(t, c.HasCategory("Child Poverty"))
	assert.False(t, c.HasCategory("child poverty"))
}

func TestCodesAndVariable(t *testing.T) {
	c := testCatalog(t)

	codes, err := c.Codes("Child Poverty")
	require.NoError(t, err)
	assert.Equal(t, []types.VariableCode{"B17001_001E", "B17001_004E"}, codes)

	_, err = c.Codes("Nope")
	assert.ErrorIs(t, err, types.ErrUnknownCategory)

	v, err := c.Variable("B17001_004E")
	require.NoError(t, err)
	assert.Equal(t, "Male under 5 below poverty", v.Name)
	assert.Equal(t, types.VariableCode("B17001_001E"), v.Universe)

	_, err = c.Variable("B99999_001E")
	assert.ErrorIs(t, err, types.ErrUnknownVariable)
}

func TestCodesReturnsCopy(t *testing.T) {
	c := testCatalog(t)
	codes, err := c.Codes("Child Poverty")
	require.NoError(t, err)
	codes[0] = "mutated"

	again, err := c.Codes("Child Poverty")
	require.NoError(t, err)
	assert.Equal(t, types.VariableCode("B17001_001E"), again[0])
}

// --- index ---

func TestIndexSearch(t *testing.T) {
	c := testCatalog(t)
	idx, err := NewIndex(context.Background(), c)
	require.NoError(t, err)
	defer idx.Close()

	tests := []struct {
		name  string
		query IndexQuery
		want  []types.VariableCode
	}{
		{"all", IndexQuery{}, []types.VariableCode{"B17001_001E", "B17001_004E", "S2301_C04_001E", "DP02_0053E"}},
		{"by name", IndexQuery{Text: "POVERTY"}, []types.VariableCode{"B17001_004E"}},
		{"by code", IndexQuery{Text: "s2301"}, []types.VariableCode{"S2301_C04_001E"}},
		{"code fragment", IndexQuery{Text: "1_0"}, []types.VariableCode{"B17001_001E", "B17001_004E"}},
		{"category", IndexQuery{Category: "School Enrollment"}, []types.VariableCode{"DP02_0053E"}},
		{"limit", IndexQuery{Limit: 1}, []types.VariableCode{"B17001_001E"}},
		{"no match", IndexQuery{Text: "zzz"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Search(context.Background(), tt.query)
			require.NoError(t, err)
			var codes []types.VariableCode
			for _, v := range got {
				codes = append(codes, v.Code)
			}
			assert.Equal(t, tt.want, codes)
		})
	}
}
