package store

import "errors"

var (
	// ErrStorageUnavailable means the local persistence engine could not be
	// opened. Callers degrade to the in-memory fallback and surface a
	// warning instead of aborting.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrNotFound means no record matched the given key.
	ErrNotFound = errors.New("record not found")
)
