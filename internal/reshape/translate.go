// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reshape

import (
	"fmt"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/pkg/types"
)

// VariableLookup resolves a code to its catalog entry. *catalog.Catalog
// satisfies it.
type VariableLookup interface {
	Variable(code types.VariableCode) (catalog.Variable, error)
}

// Translate fills Variable and Category on every row. A code missing from
// the catalog fails the whole table; the table is left unchanged.
func Translate(table *types.MergedTable, cat VariableLookup) error {
	labels := make([]catalog.Variable, len(table.Rows))
	for i, row := range table.Rows {
		v, err := cat.Variable(row.Code)
		if err != nil {
			return fmt.Errorf("translating %s (%d): %w", row.Code, row.Year, err)
		}
		labels[i] = v
	}
	for i := range table.Rows {
		table.Rows[i].Variable = labels[i].Name
		table.Rows[i].Category = labels[i].Category
	}
	return nil
}
