// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single upstream call, retries included.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "census-viewer/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CensusConfig holds settings for the census API client and the fetch scheduler.
type CensusConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the data.census.gov API key. It is copied into every FetchUnit.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API root (default "https://api.census.gov/data").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Source is the ACS product queried (default "acs5").
	Source string `json:"source" yaml:"source"`

	// Workers bounds the number of FetchUnits in flight (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MaxRetries is the number of retries on HTTP 429 and 5xx (default 2,
	// negative disables retries).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestsPerSecond throttles calls across all workers (default 10).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// LatestYear pins the most recent period. Zero means probe the API.
	LatestYear int `json:"latest_year" yaml:"latest_year"`

	// ComparisonYears is the number of consecutive periods in the
	// county/state view (default 5).
	ComparisonYears int `json:"comparison_years" yaml:"comparison_years"`

	// YearProbeDepth is how many years back the latest-year probe may step (default 3).
	YearProbeDepth int `json:"year_probe_depth" yaml:"year_probe_depth"`
}

// CatalogConfig points at the reference catalog files.
type CatalogConfig struct {
	// GeoFile is the state/county FIPS CSV.
	GeoFile string `json:"geo_file" yaml:"geo_file"`

	// VariablesFile is the variable catalog, CSV or YAML.
	VariablesFile string `json:"variables_file" yaml:"variables_file"`
}

// ServerConfig holds settings for the dashboard HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8050").
	Addr string `json:"addr" yaml:"addr"`

	// MappableCategories lists the categories the tract map view supports.
	MappableCategories []string `json:"mappable_categories" yaml:"mappable_categories"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig selects the log level and an optional log file.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

// AppConfig groups all configuration sections.
type AppConfig struct {
	Census  CensusConfig  `json:"census" yaml:"census"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// Defaults used when a config field is left at its zero value.
const (
	DefaultBaseURL           = "https://api.census.gov/data"
	DefaultSource            = "acs5"
	DefaultWorkers           = 4
	DefaultMaxRetries        = 2
	DefaultRequestsPerSecond = 10
	DefaultComparisonYears   = 5
	DefaultYearProbeDepth    = 3
	DefaultTimeout           = 30 * time.Second
	DefaultUserAgent         = "census-viewer/0.1"
)

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c CensusConfig) WithDefaults() CensusConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Source == "" {
		c.Source = DefaultSource
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	// Negative MaxRetries disables retries and is kept as is.
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.ComparisonYears <= 0 {
		c.ComparisonYears = DefaultComparisonYears
	}
	if c.YearProbeDepth <= 0 {
		c.YearProbeDepth = DefaultYearProbeDepth
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}
