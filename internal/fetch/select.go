// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch turns a category selection into table-type partitions and
// runs the resulting fetch units against the census API with a bounded
// number of workers.
package fetch

import (
	"fmt"

	"github.com/pdiddy/census-viewer/pkg/types"
)

// CodeLookup resolves a category label to its variable codes.
// *catalog.Catalog satisfies it.
type CodeLookup interface {
	Codes(category string) ([]types.VariableCode, error)
}

// Select maps the given categories to their variable codes, partitioned by
// table type in fixed order (detail, subject, profile, comparison profile).
// Empty partitions are dropped and duplicate codes are kept once.
func Select(cat CodeLookup, categories ...string) ([]types.Partition, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no category selected", types.ErrEmptySelection)
	}

	buckets := make(map[types.TableType][]types.VariableCode)
	seen := make(map[types.VariableCode]bool)
	for _, category := range categories {
		codes, err := cat.Codes(category)
		if err != nil {
			return nil, err
		}
		for _, code := range codes {
			if seen[code] {
				continue
			}
			seen[code] = true
			table, ok := types.TableTypeOf(code)
			if !ok {
				return nil, fmt.Errorf("%w: %s (category %q)", types.ErrUnknownTableType, code, category)
			}
			buckets[table] = append(buckets[table], code)
		}
	}

	var parts []types.Partition
	for _, table := range types.TableTypes() {
		if codes := buckets[table]; len(codes) > 0 {
			parts = append(parts, types.Partition{Table: table, Codes: codes})
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: categories %q have no variable codes", types.ErrEmptySelection, categories)
	}
	return parts, nil
}
