// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/internal/census"
	"github.com/pdiddy/census-viewer/internal/logger"
	"github.com/pdiddy/census-viewer/internal/secrets"
	"github.com/pdiddy/census-viewer/internal/viewer"
	"github.com/pdiddy/census-viewer/pkg/types"
)

const (
	defaultGeoFile  = "data/state_county_fips.csv"
	defaultVarsFile = "data/census_vars.csv"
	defaultAddr     = ":8050"
)

// loadConfig reads the config file found by viper, then applies env and
// flag overrides. The API key falls back to .secrets/census-api-key.
func loadConfig() (types.AppConfig, error) {
	cfg := types.AppConfig{
		Catalog: types.CatalogConfig{GeoFile: defaultGeoFile, VariablesFile: defaultVarsFile},
		Server:  types.ServerConfig{Addr: defaultAddr},
	}

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := decodeConfig(bytes.NewReader(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	overrideString("census.api_key", &cfg.Census.APIKey)
	overrideString("census.base_url", &cfg.Census.BaseURL)
	overrideString("catalog.geo_file", &cfg.Catalog.GeoFile)
	overrideString("catalog.variables_file", &cfg.Catalog.VariablesFile)
	overrideString("server.addr", &cfg.Server.Addr)
	overrideString("log.level", &cfg.Log.Level)
	overrideString("log.file", &cfg.Log.File)
	overrideInt("census.latest_year", &cfg.Census.LatestYear)
	overrideInt("census.workers", &cfg.Census.Workers)

	cfg.Census.APIKey = loadedSecrets.Lookup(secrets.CensusAPIKey, cfg.Census.APIKey)
	cfg.Census = cfg.Census.WithDefaults()
	return cfg, nil
}

// decodeConfig parses YAML into cfg, keeping fields the document omits.
func decodeConfig(r io.Reader, cfg *types.AppConfig) error {
	err := yaml.NewDecoder(r).Decode(cfg)
	if err == io.EOF {
		return nil
	}
	return err
}

func overrideString(key string, dst *string) {
	if viper.IsSet(key) {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
}

func overrideInt(key string, dst *int) {
	if viper.IsSet(key) {
		if v := viper.GetInt(key); v != 0 {
			*dst = v
		}
	}
}

// app bundles what the subcommands share.
type app struct {
	cfg    types.AppConfig
	log    *logrus.Logger
	closer io.Closer
	cat    *catalog.Catalog
	client *census.Client
	view   *viewer.Viewer
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		closer.Close()
		return nil, err
	}
	if cfg.Census.APIKey == "" {
		log.Warn("no census API key configured; requests are subject to the keyless quota")
	}

	client := census.NewClient(cfg.Census, nil)
	return &app{
		cfg:    cfg,
		log:    log,
		closer: closer,
		cat:    cat,
		client: client,
		view:   viewer.New(cat, client, client, cfg.Census),
	}, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}
