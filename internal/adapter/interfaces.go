// SPDX-License-Identifier: Apache-2.0

// Package adapter provides transport-layer abstractions for communicating
// with the remote design API.
//
// The primary abstraction is [RemoteDesignAPI], which decouples the sync
// engine from the underlying protocol. The package ships an HTTP/REST
// implementation ([NewHTTPDesignAPI]) plus a [Connectivity] monitor that
// probes the API health endpoint and notifies subscribers when the network
// comes back.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrVersionConflict] for 409, [ErrNotFound] for 404).
package adapter

import (
	"context"

	"github.com/loomworks/stitchsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// RemoteDesignAPI defines transport-agnostic communication with the remote
// design authority. Implementations are responsible for serialisation,
// authentication header management, and mapping transport-level errors to
// the sentinel values defined in this package.
//
// All writes are subject to optimistic concurrency: the server stamps a
// version on every accepted write and rejects updates whose submitted
// version is stale.
type RemoteDesignAPI interface {
	// SetToken stores the bearer token attached to all subsequent requests.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or an
	// empty string if no token has been set yet.
	Token() string

	// CreateDesign submits a full design payload and returns the
	// server-assigned record (id and version 1). At-least-once semantics:
	// a retried create after a lost response may produce a second server
	// copy, which the conflict protocol later surfaces.
	CreateDesign(ctx context.Context, req models.CreateDesignRequest) (models.ServerDesign, error)

	// UpdateDesign submits a payload for an existing design together with
	// the last server version known to the client. Returns the updated
	// server record on success, [ErrVersionConflict] (wrapped) when the
	// version is stale, or [ErrNotFound] when the design no longer exists.
	// Setting req.Force bypasses the version check ("keep local" resolution).
	UpdateDesign(ctx context.Context, serverID string, req models.UpdateDesignRequest) (models.ServerDesign, error)

	// DeleteDesign removes the design by its server id. Idempotent for the
	// caller: [ErrNotFound] means the design is already gone and the drain
	// loop treats it as success.
	DeleteDesign(ctx context.Context, serverID string) error

	// GetDesign fetches the current server snapshot of a design, used by
	// conflict resolution. Returns [ErrNotFound] if it was deleted remotely.
	GetDesign(ctx context.Context, serverID string) (models.ServerDesign, error)
}

// Connectivity reports whether the remote API is reachable and notifies
// subscribers on offline-to-online transitions. The sync manager consumes
// it to stay inactive while offline and to auto-trigger a drain when the
// network returns.
type Connectivity interface {
	// Online returns the last observed reachability state.
	Online() bool

	// OnRestore registers fn to be called (from the monitor goroutine) each
	// time reachability flips from offline to online. The returned handle
	// removes the registration.
	OnRestore(fn func()) (unsubscribe func())

	// SetOnline overrides the observed state, for hosts that already know
	// their network status and for tests.
	SetOnline(online bool)
}
