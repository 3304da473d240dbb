// SPDX-License-Identifier: Apache-2.0

package config

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants the client relies on at startup.
//
// An empty DSN is allowed: the store layer degrades to its in-memory
// fallback and the caller is warned, rather than failing startup.
func (cfg *StructuredConfig) validate() error {
	if cfg.API.BaseURL == "" || cfg.API.RequestTimeout <= 0 {
		return ErrInvalidAPIConfigs
	}

	if cfg.Sync.Interval <= 0 || cfg.Sync.MaxRetries <= 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Sync.BackoffBase <= 0 || cfg.Sync.BackoffCap < cfg.Sync.BackoffBase {
		return ErrInvalidSyncConfigs
	}

	return nil
}
