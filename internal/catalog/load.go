// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/census-viewer/pkg/types"
)

// Load reads the geography and variable files named in cfg.
func Load(cfg types.CatalogConfig) (*Catalog, error) {
	if cfg.GeoFile == "" || cfg.VariablesFile == "" {
		return nil, fmt.Errorf("catalog: geo_file and variables_file are required")
	}

	gf, err := os.Open(cfg.GeoFile)
	if err != nil {
		return nil, fmt.Errorf("opening geography catalog: %w", err)
	}
	defer gf.Close()
	states, err := ReadGeo(gf)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.GeoFile, err)
	}

	vf, err := os.Open(cfg.VariablesFile)
	if err != nil {
		return nil, fmt.Errorf("opening variable catalog: %w", err)
	}
	defer vf.Close()

	var variables []Variable
	switch strings.ToLower(filepath.Ext(cfg.VariablesFile)) {
	case ".yaml", ".yml":
		variables, err = ReadVariablesYAML(vf)
	default:
		variables, err = ReadVariablesCSV(vf)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.VariablesFile, err)
	}

	return New(states, variables)
}

// ReadGeo parses the state/county CSV. Columns are located by header:
// State, State_FIPS, County, County_FIPS are required; centerlat and
// centerlon are optional. FIPS codes are zero-padded.
func ReadGeo(r io.Reader) ([]State, error) {
	rows, cols, err := readCSV(r, "State", "State_FIPS", "County", "County_FIPS")
	if err != nil {
		return nil, err
	}
	latCol, hasLat := cols["centerlat"]
	lonCol, hasLon := cols["centerlon"]

	var states []State
	index := make(map[string]int)
	for n, rec := range rows {
		line := n + 2
		name := strings.TrimSpace(rec[cols["State"]])
		stateFIPS, err := padFIPS(rec[cols["State_FIPS"]], 2)
		if err != nil {
			return nil, fmt.Errorf("line %d: state FIPS: %w", line, err)
		}
		countyFIPS, err := padFIPS(rec[cols["County_FIPS"]], 3)
		if err != nil {
			return nil, fmt.Errorf("line %d: county FIPS: %w", line, err)
		}

		county := County{Name: strings.TrimSpace(rec[cols["County"]]), FIPS: countyFIPS}
		if hasLat {
			county.Lat = parseCoord(rec[latCol])
		}
		if hasLon {
			county.Lon = parseCoord(rec[lonCol])
		}

		idx, ok := index[name]
		if !ok {
			idx = len(states)
			index[name] = idx
			states = append(states, State{Name: name, FIPS: stateFIPS})
		} else if states[idx].FIPS != stateFIPS {
			return nil, fmt.Errorf("line %d: state %q has FIPS %s and %s", line, name, states[idx].FIPS, stateFIPS)
		}
		states[idx].Counties = append(states[idx].Counties, county)
	}
	return states, nil
}

// ReadVariablesCSV parses the variable catalog CSV. Columns vars, name and
// category are required; description and universe are optional.
func ReadVariablesCSV(r io.Reader) ([]Variable, error) {
	rows, cols, err := readCSV(r, "vars", "name", "category")
	if err != nil {
		return nil, err
	}
	descCol, hasDesc := cols["description"]
	uniCol, hasUni := cols["universe"]

	variables := make([]Variable, 0, len(rows))
	for _, rec := range rows {
		v := Variable{
			Code:     types.VariableCode(strings.TrimSpace(rec[cols["vars"]])),
			Name:     strings.TrimSpace(rec[cols["name"]]),
			Category: strings.TrimSpace(rec[cols["category"]]),
		}
		if hasDesc {
			v.Description = strings.TrimSpace(rec[descCol])
		}
		if hasUni {
			v.Universe = types.VariableCode(strings.TrimSpace(rec[uniCol]))
		}
		variables = append(variables, v)
	}
	return variables, nil
}

// variablesFile is the YAML layout of a variable catalog.
type variablesFile struct {
	Variables []Variable `yaml:"variables"`
}

// ReadVariablesYAML parses a YAML variable catalog of the form
// "variables: [{code, name, category, description, universe}]".
func ReadVariablesYAML(r io.Reader) ([]Variable, error) {
	var f variablesFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty variable catalog")
		}
		return nil, fmt.Errorf("parsing variable catalog: %w", err)
	}
	return f.Variables, nil
}

// readCSV reads all records and maps header names to column indexes,
// failing when a required column is missing.
func readCSV(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("missing header row")
		}
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", name)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading rows: %w", err)
	}
	return rows, cols, nil
}

// padFIPS left-pads a numeric FIPS code with zeros to width.
func padFIPS(raw string, width int) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty code")
	}
	if _, err := strconv.Atoi(s); err != nil {
		return "", fmt.Errorf("non-numeric code %q", s)
	}
	if len(s) > width {
		return "", fmt.Errorf("code %q longer than %d digits", s, width)
	}
	return strings.Repeat("0", width-len(s)) + s, nil
}

func parseCoord(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
