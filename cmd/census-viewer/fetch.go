// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the county-vs-state table for a selection",
	Long: `Fetch resolves the state, counties and categories against the reference
catalog, downloads the last five ACS years for every matching variable, and
prints one row per variable and year with a column per county plus State.

Repeat --county and --category to select several.`,
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	table, err := a.view.BuildDataframe(ctx, sel.counties, []string{sel.state}, sel.categories)
	if err != nil {
		return err
	}
	return formatTableOutput(os.Stdout, table, format)
}

var tractsCmd = &cobra.Command{
	Use:   "tracts",
	Short: "Print the present and past tract snapshots for a selection",
	Long: `Tracts downloads tract-level values for the latest ACS year and the year
five before it, for every listed county, and prints one row per tract with its
TRACTCE and GEOID.`,
	RunE: runTracts,
}

func runTracts(cmd *cobra.Command, args []string) error {
	sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snap, err := a.view.BuildMappingDF(ctx, sel.counties, sel.state, sel.categories)
	if err != nil {
		return err
	}
	if jsonOutput {
		return formatJSON(os.Stdout, snap)
	}
	formatTracts(os.Stdout, snap.Present)
	fmt.Fprintln(os.Stdout)
	formatTracts(os.Stdout, snap.Past)
	return nil
}

type cliSelection struct {
	state      string
	counties   []string
	categories []string
}

func selectionFromFlags(cmd *cobra.Command) (cliSelection, error) {
	state, _ := cmd.Flags().GetString("state")
	counties, _ := cmd.Flags().GetStringArray("county")
	categories, _ := cmd.Flags().GetStringArray("category")
	switch {
	case state == "":
		return cliSelection{}, fmt.Errorf("--state is required")
	case len(counties) == 0:
		return cliSelection{}, fmt.Errorf("at least one --county is required")
	case len(categories) == 0:
		return cliSelection{}, fmt.Errorf("at least one --category is required")
	}
	return cliSelection{state: state, counties: counties, categories: categories}, nil
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("state", "", "state name (e.g. Alabama)")
	cmd.Flags().StringArray("county", nil, "county name (repeatable)")
	cmd.Flags().StringArray("category", nil, "indicator category (repeatable)")
}

func init() {
	addSelectionFlags(fetchCmd)
	fetchCmd.Flags().String("format", "table", "output format: table, json or csv")

	addSelectionFlags(tractsCmd)
	tractsCmd.Flags().Bool("json", false, "output snapshots as JSON")

	rootCmd.AddCommand(fetchCmd, tractsCmd)
}
