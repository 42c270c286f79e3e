// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/census-viewer/pkg/types"
)

func sampleTable() *types.MergedTable {
	return &types.MergedTable{
		Columns: []string{"Autauga County", types.StateColumn},
		Rows: []types.Row{
			{Code: "S2301_C04_001E", Year: 2019, Values: []float64{3.6, math.NaN()}, Variable: "Unemployment Rate", Category: "Unemployment Rate"},
		},
	}
}

func TestFormatTableOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatTableOutput(&buf, sampleTable(), "table"))
	out := buf.String()
	assert.Contains(t, out, "Autauga County")
	assert.Contains(t, out, "S2301_C04_001E")
	assert.Contains(t, out, "3.6")
	assert.Contains(t, out, "1 rows")

	buf.Reset()
	require.NoError(t, formatTableOutput(&buf, sampleTable(), "csv"))
	assert.Equal(t, "Code,Year,Variable,Category,Autauga County,State\nS2301_C04_001E,2019,Unemployment Rate,Unemployment Rate,3.6,\n", buf.String())

	buf.Reset()
	require.NoError(t, formatTableOutput(&buf, sampleTable(), "json"))
	assert.Contains(t, buf.String(), `"values": [`)

	assert.Error(t, formatTableOutput(&buf, sampleTable(), "xml"))
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatTableOutput(&buf, &types.MergedTable{}, "table"))
	assert.Equal(t, "No rows.\n", buf.String())
}

func TestFormatTracts(t *testing.T) {
	var buf bytes.Buffer
	formatTracts(&buf, &types.TractTable{
		Year:  2019,
		Codes: []types.VariableCode{"B17001_004E"},
		Rows:  []types.TractRow{{TRACTCE: "020100", GEOID: "01001020100", Values: []float64{math.NaN()}}},
	})
	out := buf.String()
	assert.Contains(t, out, "2019 snapshot")
	assert.Contains(t, out, "01001020100  020100")
	assert.Contains(t, out, "1 tracts")
}

func TestDecodeConfig(t *testing.T) {
	doc := `census:
  api_key: abc
  timeout: 5s
  workers: 8
catalog:
  geo_file: geo.csv
server:
  mappable_categories: [Child Poverty]
`
	cfg := types.AppConfig{Catalog: types.CatalogConfig{VariablesFile: "vars.csv"}}
	require.NoError(t, decodeConfig(strings.NewReader(doc), &cfg))

	assert.Equal(t, "abc", cfg.Census.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Census.Timeout)
	assert.Equal(t, 8, cfg.Census.Workers)
	assert.Equal(t, "geo.csv", cfg.Catalog.GeoFile)
	assert.Equal(t, "vars.csv", cfg.Catalog.VariablesFile, "omitted fields keep their defaults")
	assert.Equal(t, []string{"Child Poverty"}, cfg.Server.MappableCategories)

	require.NoError(t, decodeConfig(strings.NewReader(""), &cfg))
}
