// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog holds the reference tables the dashboard is built on:
// state and county FIPS codes, and the variable catalog mapping upstream
// variable codes to human names and categories.
//
// A Catalog is immutable once built and safe for concurrent use.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/census-viewer/pkg/types"
)

// State is one state and its counties.
type State struct {
	Name     string   `json:"name" yaml:"name"`
	FIPS     string   `json:"fips" yaml:"fips"`
	Counties []County `json:"counties" yaml:"counties"`
}

// County is one county. Lat and Lon are the map centre when known.
type County struct {
	Name string  `json:"name" yaml:"name"`
	FIPS string  `json:"fips" yaml:"fips"`
	Lat  float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon  float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
}

// Variable is one entry of the variable catalog.
type Variable struct {
	Code        types.VariableCode `json:"code" yaml:"code"`
	Name        string             `json:"name" yaml:"name"`
	Category    string             `json:"category" yaml:"category"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`

	// Universe is the code of the denominator used for percentage views.
	Universe types.VariableCode `json:"universe,omitempty" yaml:"universe,omitempty"`
}

// Catalog is the read-only lookup shared by every request.
type Catalog struct {
	states     []State
	stateIndex map[string]int
	variables  []Variable
	byCode     map[types.VariableCode]int
	byCategory map[string][]types.VariableCode
	categories []string
}

// New builds a Catalog from states and variables. Names are matched
// case-insensitively; codes are matched exactly.
func New(states []State, variables []Variable) (*Catalog, error) {
	c := &Catalog{
		stateIndex: make(map[string]int),
		byCode:     make(map[types.VariableCode]int),
		byCategory: make(map[string][]types.VariableCode),
	}

	for _, s := range states {
		key := nameKey(s.Name)
		if key == "" {
			return nil, fmt.Errorf("state with FIPS %q has no name", s.FIPS)
		}
		if _, dup := c.stateIndex[key]; dup {
			return nil, fmt.Errorf("duplicate state %q", s.Name)
		}
		s.Counties = append([]County(nil), s.Counties...)
		c.stateIndex[key] = len(c.states)
		c.states = append(c.states, s)
	}

	for _, v := range variables {
		if v.Code == "" {
			return nil, fmt.Errorf("variable %q has no code", v.Name)
		}
		if v.Category == "" {
			return nil, fmt.Errorf("variable %s has no category", v.Code)
		}
		if _, dup := c.byCode[v.Code]; dup {
			return nil, fmt.Errorf("duplicate variable code %s", v.Code)
		}
		c.byCode[v.Code] = len(c.variables)
		c.variables = append(c.variables, v)
		if _, seen := c.byCategory[v.Category]; !seen {
			c.categories = append(c.categories, v.Category)
		}
		c.byCategory[v.Category] = append(c.byCategory[v.Category], v.Code)
	}
	sort.Strings(c.categories)

	return c, nil
}

// States returns the state names in file order.
func (c *Catalog) States() []string {
	names := make([]string, len(c.states))
	for i, s := range c.states {
		names[i] = s.Name
	}
	return names
}

// State looks up a state by name.
func (c *Catalog) State(name string) (State, error) {
	idx, ok := c.stateIndex[nameKey(name)]
	if !ok {
		return State{}, fmt.Errorf("%w: %q", types.ErrUnknownState, name)
	}
	return c.states[idx], nil
}

// Counties returns the counties of a state in file order.
func (c *Catalog) Counties(state string) ([]County, error) {
	s, err := c.State(state)
	if err != nil {
		return nil, err
	}
	return append([]County(nil), s.Counties...), nil
}

// County looks up a county by name within a state.
func (c *Catalog) County(state, county string) (County, error) {
	s, err := c.State(state)
	if err != nil {
		return County{}, err
	}
	key := nameKey(county)
	for _, ct := range s.Counties {
		if nameKey(ct.Name) == key {
			return ct, nil
		}
	}
	return County{}, fmt.Errorf("%w: %q in %s", types.ErrUnknownCounty, county, s.Name)
}

// Categories returns the sorted, unique category labels.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// HasCategory reports whether category has at least one variable.
func (c *Catalog) HasCategory(category string) bool {
	_, ok := c.byCategory[category]
	return ok
}

// Codes returns the codes of a category in catalog order.
func (c *Catalog) Codes(category string) ([]types.VariableCode, error) {
	codes, ok := c.byCategory[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownCategory, category)
	}
	return append([]types.VariableCode(nil), codes...), nil
}

// Variable looks up a code.
func (c *Catalog) Variable(code types.VariableCode) (Variable, error) {
	idx, ok := c.byCode[code]
	if !ok {
		return Variable{}, fmt.Errorf("%w: %s", types.ErrUnknownVariable, code)
	}
	return c.variables[idx], nil
}

// Variables returns every variable in catalog order.
func (c *Catalog) Variables() []Variable {
	return append([]Variable(nil), c.variables...)
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
