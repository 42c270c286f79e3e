// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reshape

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/pdiddy/census-viewer/pkg/types"
)

// WriteCSV writes table with Code, Year, Variable and Category ahead of the
// value columns. Missing values are empty cells.
func WriteCSV(w io.Writer, table *types.MergedTable) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Code", "Year", "Variable", "Category"}, table.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range table.Rows {
		rec := []string{string(r.Code), strconv.Itoa(r.Year), r.Variable, r.Category}
		for _, v := range r.Values {
			rec = append(rec, FormatValue(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders v in its shortest form, or "" when missing.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
