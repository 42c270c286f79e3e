// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/census-viewer/internal/catalog"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List indicator categories and their variable counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, category := range a.cat.Categories() {
			codes, err := a.cat.Codes(category)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%-50s  %d\n", category, len(codes))
		}
		return nil
	},
}

var varsCmd = &cobra.Command{
	Use:   "vars [query]",
	Short: "Search the variable catalog",
	Long: `Vars searches variable codes, names and descriptions for the query text,
optionally restricted to one category.`,
	RunE: runVars,
}

func runVars(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	idx, err := catalog.NewIndex(context.Background(), a.cat)
	if err != nil {
		return err
	}
	defer idx.Close()

	vars, err := idx.Search(context.Background(), catalog.IndexQuery{
		Text:     strings.Join(args, " "),
		Category: category,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return formatJSON(os.Stdout, vars)
	}
	if len(vars) == 0 {
		fmt.Println("No variables found.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-16s  %-50s  %s\n", "Code", "Name", "Category")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, v := range vars {
		fmt.Fprintf(os.Stdout, "%-16s  %-50s  %s\n", v.Code, truncate(v.Name, 50), v.Category)
	}
	fmt.Fprintf(os.Stdout, "\n%d variables\n", len(vars))
	return nil
}

func init() {
	varsCmd.Flags().String("category", "", "restrict to one category")
	varsCmd.Flags().Int("limit", 50, "maximum number of variables")
	varsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(categoriesCmd, varsCmd)
}
