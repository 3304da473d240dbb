package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags into a [StructuredConfig] layer.
//
// Flags:
//
//	-a API base URL
//	-t API bearer token
//	-d local database path (SQLite file)
//	-c/-config JSON file path with configs
//	-request-timeout API request timeout (e.g., "15s")
//	-health-interval connectivity probe interval (e.g., "30s")
//	-sync-interval background sync interval (e.g., "5m")
//	-max-retries transient-failure retry limit per queue item
//	-backoff-base first retry delay (e.g., "1s")
//	-backoff-cap maximum retry delay (e.g., "2m")
func ParseFlags() *StructuredConfig {
	var apiBaseURL string
	var apiToken string
	var databaseDSN string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var healthInterval time.Duration
	var syncInterval time.Duration
	var maxRetries int
	var backoffBase time.Duration
	var backoffCap time.Duration

	flag.StringVar(&apiBaseURL, "a", "", "Remote design API base URL")
	flag.StringVar(&apiToken, "t", "", "API bearer token")
	flag.StringVar(&databaseDSN, "d", "", "Local database path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "API request timeout (e.g., 15s)")
	flag.DurationVar(&healthInterval, "health-interval", 0, "Connectivity probe interval (e.g., 30s)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 5m)")
	flag.IntVar(&maxRetries, "max-retries", 0, "Retry limit per queue item")
	flag.DurationVar(&backoffBase, "backoff-base", 0, "First retry delay (e.g., 1s)")
	flag.DurationVar(&backoffCap, "backoff-cap", 0, "Maximum retry delay (e.g., 2m)")

	flag.Parse()

	return &StructuredConfig{
		API: API{
			BaseURL:        apiBaseURL,
			Token:          apiToken,
			RequestTimeout: requestTimeout,
			HealthInterval: healthInterval,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Sync: Sync{
			Interval:    syncInterval,
			MaxRetries:  maxRetries,
			BackoffBase: backoffBase,
			BackoffCap:  backoffCap,
		},
		JSONFilePath: jsonConfigPath,
	}
}
