// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// stitchsync client. It is populated by merging values from environment
// variables, command-line flags, an optional JSON file, and built-in
// defaults (in that priority order, first non-zero wins).
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the build version.
	App App `envPrefix:"APP_"`

	// API holds settings for the remote design API transport.
	API API `envPrefix:"API_"`

	// Storage holds local persistence settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds drain-loop policy settings (interval, retries, backoff).
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged underneath the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the semantic version string of the running client.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// API holds configuration for the remote design API client.
type API struct {
	// BaseURL is the root endpoint of the remote design API
	// (e.g. "https://api.example.com").
	// Env: API_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// Token is the bearer token presented on authenticated requests.
	// Env: API_TOKEN
	Token string `env:"TOKEN"`

	// RequestTimeout is the per-request transport timeout (e.g. "15s").
	// Timed-out requests are treated like any other transient failure.
	// Env: API_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// HealthInterval is how often the connectivity monitor probes the API
	// health endpoint (e.g. "30s").
	// Env: API_HEALTH_INTERVAL
	HealthInterval time.Duration `env:"HEALTH_INTERVAL"`
}

// Storage groups local persistence backend settings.
type Storage struct {
	// DB holds the local database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite file path used for the local sync database
	// (e.g. "stitchsync.db").
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Sync holds drain-loop policy settings.
type Sync struct {
	// Interval is how often the background sync job triggers a drain when
	// no connectivity event does it first (e.g. "5m").
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// MaxRetries is how many transient failures a queue item survives
	// before it requires a manual retry.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// BackoffBase is the first retry delay; attempt n waits
	// BackoffBase * 2^n, capped at BackoffCap.
	// Env: SYNC_BACKOFF_BASE
	BackoffBase time.Duration `env:"BACKOFF_BASE"`

	// BackoffCap bounds the exponential retry delay.
	// Env: SYNC_BACKOFF_CAP
	BackoffCap time.Duration `env:"BACKOFF_CAP"`
}

// Defaults returns the built-in configuration layer merged beneath all
// explicit sources.
func Defaults() *StructuredConfig {
	return &StructuredConfig{
		API: API{
			BaseURL:        "http://localhost:8080",
			RequestTimeout: 15 * time.Second,
			HealthInterval: 30 * time.Second,
		},
		Storage: Storage{DB: DB{DSN: "stitchsync.db"}},
		Sync: Sync{
			Interval:    5 * time.Minute,
			MaxRetries:  5,
			BackoffBase: time.Second,
			BackoffCap:  2 * time.Minute,
		},
	}
}

// GetClientConfig loads, merges, and validates the client configuration from
// all available sources in the following priority order (first non-zero
// value wins):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetClientConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}
