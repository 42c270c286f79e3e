// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/census-viewer/internal/reshape"
	"github.com/pdiddy/census-viewer/pkg/types"
)

func formatJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTableOutput(w io.Writer, table *types.MergedTable, format string) error {
	switch format {
	case "json":
		return formatJSON(w, table)
	case "csv":
		return reshape.WriteCSV(w, table)
	case "table", "":
		formatMerged(w, table)
		return nil
	default:
		return fmt.Errorf("unknown format %q: use table, json or csv", format)
	}
}

// formatMerged writes a fixed-width table, one line per variable and year.
func formatMerged(w io.Writer, table *types.MergedTable) {
	if len(table.Rows) == 0 {
		fmt.Fprintln(w, "No rows.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-40s", "Year", "Code", "Variable")
	for _, c := range table.Columns {
		fmt.Fprintf(w, "  %14s", truncate(c, 14))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 66+16*len(table.Columns)))

	for _, r := range table.Rows {
		fmt.Fprintf(w, "%-4d  %-16s  %-40s", r.Year, r.Code, truncate(r.Variable, 40))
		for _, v := range r.Values {
			cell := reshape.FormatValue(v)
			if cell == "" {
				cell = "-"
			}
			fmt.Fprintf(w, "  %14s", cell)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d rows\n", len(table.Rows))
}

// formatTracts writes one snapshot, one line per tract.
func formatTracts(w io.Writer, t *types.TractTable) {
	fmt.Fprintf(w, "%d snapshot\n", t.Year)
	fmt.Fprintf(w, "%-11s  %-7s", "GEOID", "TRACTCE")
	for _, c := range t.Codes {
		fmt.Fprintf(w, "  %14s", c)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 20+16*len(t.Codes)))

	for _, r := range t.Rows {
		fmt.Fprintf(w, "%-11s  %-7s", r.GEOID, r.TRACTCE)
		for _, v := range r.Values {
			cell := reshape.FormatValue(v)
			if cell == "" {
				cell = "-"
			}
			fmt.Fprintf(w, "  %14s", cell)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\n%d tracts\n", len(t.Rows))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
