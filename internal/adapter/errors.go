package adapter

import "errors"

// Sentinel errors mapped from remote API responses. Callers branch with
// errors.Is; the drain loop treats everything outside this set, plus
// ErrNetwork, as transient.
var (
	// ErrUnauthorized is returned for 401 responses (missing or expired token).
	ErrUnauthorized = errors.New("client unauthorized")
	// ErrVersionConflict is returned when the server rejects a write because
	// the submitted version no longer matches its current one.
	ErrVersionConflict = errors.New("version conflict")
	// ErrNotFound is returned when the target design does not exist on the
	// server. Deletes treat it as success.
	ErrNotFound = errors.New("design not found")
	// ErrValidation is returned for 400/422 responses: the payload is
	// malformed and retrying cannot help.
	ErrValidation = errors.New("invalid design payload")
	// ErrNetwork wraps transport failures and 5xx responses; these are
	// retried with backoff.
	ErrNetwork = errors.New("network error")
)
