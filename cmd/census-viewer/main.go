// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the census-viewer CLI.
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/census-viewer/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Store

// bootLog reports startup events before the configured logger exists.
var bootLog = logrus.New()

// rootCmd is the base command for the census-viewer CLI.
var rootCmd = &cobra.Command{
	Use:   "census-viewer",
	Short: "County and state ACS statistics for the census dashboard",
	Long: `census-viewer fetches American Community Survey statistics from the
census API for a state, its counties and an indicator category, and reshapes
them into county-vs-state comparison tables and tract map snapshots.

serve runs the JSON API the dashboard renders; fetch and tracts print the same
tables on the command line; categories and vars browse the reference catalog.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", bootLog)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if names := s.Names(); len(names) > 0 {
			bootLog.WithField("secrets", names).Info("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./census-viewer.yaml or ~/.config/census-viewer/census-viewer.yaml)")
	pf.String("api-key", "", "census API key (default: .secrets/census-api-key)")
	pf.String("geo-file", "", "state/county FIPS CSV")
	pf.String("vars-file", "", "variable catalog, CSV or YAML")
	pf.Int("latest-year", 0, "most recent ACS year (default: probe the API)")
	pf.Int("workers", 0, "concurrent fetch units (default 4)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")

	bindFlag("census.api_key", "api-key")
	bindFlag("catalog.geo_file", "geo-file")
	bindFlag("catalog.variables_file", "vars-file")
	bindFlag("census.latest_year", "latest-year")
	bindFlag("census.workers", "workers")
	bindFlag("log.level", "log-level")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("census-viewer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "census-viewer"))
		}
	}

	viper.SetEnvPrefix("CENSUS_VIEWER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		bootLog.WithField("file", viper.ConfigFileUsed()).Info("using config file")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
