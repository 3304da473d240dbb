// SPDX-License-Identifier: Apache-2.0

// Package service implements the offline-first synchronization engine for
// locally edited designs.
//
// Edits always land in the local store first and succeed without a network.
// Each edit also stages a durable queue item describing the remote mutation
// it implies; the sync manager drains that queue against the remote design
// API whenever connectivity allows, under optimistic concurrency. Rejected
// writes freeze the affected design in the conflict state until the user
// picks a resolution (keep local, keep server, or keep both).
package service

import (
	"context"
	"time"

	"github.com/loomworks/stitchsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// DesignService manages the lifecycle of locally stored designs: creation,
// partial edits, deletion, and the sync-status bookkeeping the drain loop
// relies on. All mutations are local-only; staging the matching remote
// mutation is delegated to the [QueueService].
type DesignService interface {
	// CreateOfflineDesign validates payload, stores a new design in the
	// pending state, and stages a remote create. The returned record carries
	// the permanent device-local id.
	CreateOfflineDesign(ctx context.Context, payload models.DesignPayload) (models.OfflineDesign, error)

	// UpdateOfflineDesign merges patch into the stored design (zero-valued
	// patch fields are left unchanged), bumps the local version, and stages
	// a remote update, coalescing with any not-yet-sent mutation for the
	// same design. Returns [ErrConflictActive] while the design is frozen in
	// the conflict state.
	UpdateOfflineDesign(ctx context.Context, localID string, patch models.DesignPatch) (models.OfflineDesign, error)

	// DeleteOfflineDesign removes the design. A design the server has never
	// seen is purged immediately along with its staged mutations; otherwise
	// it is soft-deleted locally and a remote delete is staged. Returns
	// [ErrConflictActive] while the design is frozen in the conflict state:
	// a resolution has to settle the divergence first.
	DeleteOfflineDesign(ctx context.Context, localID string) error

	// GetDesign returns the design by its local id.
	// Soft-deleted designs report [ErrDesignNotFound].
	GetDesign(ctx context.Context, localID string) (models.OfflineDesign, error)

	// GetDesignByServerID returns the design bound to the given remote id.
	GetDesignByServerID(ctx context.Context, serverID string) (models.OfflineDesign, error)

	// ListDesigns returns all designs except soft-deleted ones, most
	// recently modified first.
	ListDesigns(ctx context.Context) ([]models.OfflineDesign, error)

	// ListDesignsByFolder returns the folder's designs, most recently
	// modified first.
	ListDesignsByFolder(ctx context.Context, folderID string) ([]models.OfflineDesign, error)

	// ImportDesignFromServer stores a server snapshot locally in the synced
	// state. An existing design bound to the same remote id is overwritten,
	// otherwise a new local record is created.
	ImportDesignFromServer(ctx context.Context, remote models.ServerDesign) (models.OfflineDesign, error)

	// MarkDesignSynced records a confirmed remote write: binds the server id
	// if the design has none yet, stores the confirmed server version, and
	// stamps the sync time. The design lands in the synced state unless
	// further staged mutations for it exist, in which case it stays pending.
	MarkDesignSynced(ctx context.Context, localID string, serverID string, serverVersion int64) error

	// MarkDesignProcessing, MarkDesignPending, and MarkDesignConflict move
	// the design through its sync state machine.
	MarkDesignProcessing(ctx context.Context, localID string) error
	MarkDesignPending(ctx context.Context, localID string) error
	MarkDesignConflict(ctx context.Context, localID string) error

	// MarkDesignError records an exhausted or permanently rejected sync:
	// the design enters the error state and keeps reason on the record
	// until another state transition clears it.
	MarkDesignError(ctx context.Context, localID string, reason string) error

	// PurgeDesign removes the design record and its staged mutations
	// without touching the server.
	PurgeDesign(ctx context.Context, localID string) error

	// CountByStatus returns how many designs sit in each sync state.
	CountByStatus(ctx context.Context) (map[models.SyncStatus]int, error)
}

// QueueService manages the durable queue of staged remote mutations. Items
// are drained in FIFO order (creation time, then id); mutations staged for
// a design that already has an unsent item coalesce into it so the remote
// API only ever receives the latest state.
type QueueService interface {
	// Enqueue stages op for the given design, coalescing where possible:
	// an update folds its payload into an unsent create or update for the
	// same design, and a delete discards unsent creates and updates before
	// being staged itself. Returns the staged (or updated) item.
	Enqueue(ctx context.Context, design models.OfflineDesign, op models.SyncOperation) (models.SyncQueueItem, error)

	// NextPending returns the oldest item visible to the drain loop, or
	// found=false when the queue has none.
	NextPending(ctx context.Context) (item models.SyncQueueItem, found bool, err error)

	// MarkProcessing brackets the item while its remote call is in flight.
	MarkProcessing(ctx context.Context, id int64) error

	// Complete removes a successfully applied (or obsolete) item.
	Complete(ctx context.Context, id int64) error

	// Fail records a failed attempt. The item returns to the pending state
	// for another try until its retry budget is spent, after which it moves
	// to the failed state and reports exhausted=true. Failed items are
	// invisible to the drain loop until reset.
	Fail(ctx context.Context, item models.SyncQueueItem, cause error) (exhausted bool, err error)

	// FailPermanently moves the item straight to the failed state without
	// spending the retry budget, for rejections a retry cannot fix.
	FailPermanently(ctx context.Context, item models.SyncQueueItem, cause error) error

	// HasPending reports whether any unsent item exists for the design.
	HasPending(ctx context.Context, designID string) (bool, error)

	// ResetFailedForDesign returns the design's failed items to the pending
	// state with a fresh retry budget. Returns how many items were reset.
	ResetFailedForDesign(ctx context.Context, designID string) (int, error)

	// RecoverInFlight returns items stuck in the processing state (from a
	// crash mid-drain) to the pending state. Called once at startup.
	RecoverInFlight(ctx context.Context) error

	// ClearForDesign drops every staged item for the design.
	ClearForDesign(ctx context.Context, designID string) error

	// FailedItems lists items whose retry budget is spent, oldest first.
	FailedItems(ctx context.Context) ([]models.SyncQueueItem, error)

	// Stats returns queue item counts per state.
	Stats(ctx context.Context) (models.QueueStats, error)
}

// SyncManager owns the drain loop: it applies staged mutations against the
// remote API one at a time, honours the retry/backoff policy, detects
// version conflicts, and publishes progress events. At most one drain runs
// at a time; overlapping triggers are no-ops.
type SyncManager interface {
	// ProcessQueue drains the staged mutation queue until it is empty, ctx
	// is cancelled, or storage fails. A no-op while offline or while
	// another drain is already running.
	ProcessQueue(ctx context.Context) error

	// SyncNow triggers a drain on a background goroutine and returns
	// immediately.
	SyncNow(ctx context.Context)

	// RetryDesign resets the design's failed items and error state and
	// triggers a drain. Used after the retry budget was spent.
	RetryDesign(ctx context.Context, localID string) error

	// IsSyncing reports whether a drain is currently running.
	IsSyncing() bool

	// LastSyncTime returns when a drain last completed, nil before the
	// first one.
	LastSyncTime(ctx context.Context) (*time.Time, error)

	// PendingCount returns the number of unsent queue items.
	PendingCount(ctx context.Context) (int, error)

	// QueueStats returns queue item counts per state.
	QueueStats(ctx context.Context) (models.QueueStats, error)

	// DesignSyncCounts returns design counts per sync state.
	DesignSyncCounts(ctx context.Context) (map[models.SyncStatus]int, error)

	// Subscribe registers fn for sync lifecycle events. Callbacks run on
	// the publishing goroutine and must return quickly. The returned handle
	// removes the registration.
	Subscribe(fn func(Event)) (unsubscribe func())

	// Close detaches the manager from connectivity notifications.
	Close()
}

// ConflictService resolves designs frozen by a rejected remote write.
type ConflictService interface {
	// Conflicts lists conflicted designs, oldest local modification first.
	Conflicts(ctx context.Context) ([]models.OfflineDesign, error)

	// ResolveKeepLocal overwrites the server copy with the local one,
	// bypassing the version check, and returns the re-synced design.
	// A network failure leaves the conflict untouched.
	ResolveKeepLocal(ctx context.Context, localID string) (models.OfflineDesign, error)

	// ResolveKeepServer discards local changes and adopts the current
	// server copy. If the design was deleted remotely, the local record is
	// purged and the zero design is returned.
	ResolveKeepServer(ctx context.Context, localID string) (models.OfflineDesign, error)

	// ResolveKeepBoth publishes the local copy as a brand-new server design
	// and re-points the original at the server's copy, preserving both
	// lines of work. Returns the refreshed original and the new duplicate.
	ResolveKeepBoth(ctx context.Context, localID string) (original, duplicate models.OfflineDesign, err error)

	// ResumePromotions finishes "keep both" resolutions interrupted by a
	// crash after their remote create succeeded. Called once at startup.
	ResumePromotions(ctx context.Context) error
}

// SyncJob is the background worker that triggers a drain on a fixed
// interval, complementing the connectivity-restore trigger.
type SyncJob interface {
	// Start launches the background goroutine. It drains every interval,
	// defaulting to 5 minutes if interval is zero or negative. Any
	// previously running job is stopped before the new one begins.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it
	// has fully terminated.
	Stop()
}
