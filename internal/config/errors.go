package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAPIConfigs indicates invalid remote API settings
	// (for example, missing base URL or non-positive request timeout).
	ErrInvalidAPIConfigs = errors.New("invalid api configuration")
	// ErrInvalidSyncConfigs indicates invalid drain-loop policy settings
	// (for example, zero sync interval or a backoff cap below the base).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
