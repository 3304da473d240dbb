package store

import (
	"context"

	"github.com/loomworks/stitchsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// DesignRepository is the durable keyed persistence for design records.
// Writes are atomic per record; there are no multi-record transactions.
type DesignRepository interface {
	// SaveDesign upserts the record keyed by LocalID.
	SaveDesign(ctx context.Context, d models.OfflineDesign) error

	// GetDesign returns the record for localID, or ErrNotFound.
	GetDesign(ctx context.Context, localID string) (models.OfflineDesign, error)

	// GetDesignByServerID returns the record bound to serverID, or ErrNotFound.
	GetDesignByServerID(ctx context.Context, serverID string) (models.OfflineDesign, error)

	// GetAllDesigns returns every record, most recently modified first.
	GetAllDesigns(ctx context.Context) ([]models.OfflineDesign, error)

	// GetDesignsByStatus scans the sync-status index, oldest modification first.
	GetDesignsByStatus(ctx context.Context, status models.SyncStatus) ([]models.OfflineDesign, error)

	// GetDesignsByFolder scans the folder index.
	GetDesignsByFolder(ctx context.Context, folderID string) ([]models.OfflineDesign, error)

	// CountDesignsByStatus returns aggregate record counts per sync status.
	CountDesignsByStatus(ctx context.Context) (map[models.SyncStatus]int, error)

	// GetPendingPromotions returns designs whose "keep both" resolution was
	// interrupted mid-flight.
	GetPendingPromotions(ctx context.Context) ([]models.OfflineDesign, error)

	// DeleteDesign removes the record. Missing keys are not an error.
	DeleteDesign(ctx context.Context, localID string) error
}

// QueueRepository is the durable staging area for mutations awaiting
// network application.
type QueueRepository interface {
	// InsertItem stores a new item and returns it with its assigned id.
	InsertItem(ctx context.Context, item models.SyncQueueItem) (models.SyncQueueItem, error)

	// GetItem returns the item by id, or ErrNotFound.
	GetItem(ctx context.Context, id int64) (models.SyncQueueItem, error)

	// GetItemsByDesign returns all items for a design in FIFO order.
	GetItemsByDesign(ctx context.Context, designID string) ([]models.SyncQueueItem, error)

	// GetPendingItemForDesign returns the pending item of the given
	// operation class for a design, or ErrNotFound. Used for coalescing.
	GetPendingItemForDesign(ctx context.Context, designID string, op models.SyncOperation) (models.SyncQueueItem, error)

	// NextPendingItem returns the oldest pending item across all designs
	// (FIFO by created_at, then id), or ErrNotFound when the queue is drained.
	NextPendingItem(ctx context.Context) (models.SyncQueueItem, error)

	// ReplacePayload swaps an item's snapshot in place, keeping its queue
	// position.
	ReplacePayload(ctx context.Context, id int64, payload []byte) error

	// SetItemStatus moves the item between pending/processing/failed.
	SetItemStatus(ctx context.Context, id int64, status models.QueueItemStatus) error

	// MarkItemFailure records a failed attempt: increments retry_count,
	// stores lastError, and sets the given status.
	MarkItemFailure(ctx context.Context, id int64, lastError string, status models.QueueItemStatus) error

	// ResetItem returns a failed item to pending with a clean retry count.
	ResetItem(ctx context.Context, id int64) error

	// DeleteItem removes the item. Missing ids are not an error.
	DeleteItem(ctx context.Context, id int64) error

	// DeleteItemsByDesign removes every item referencing the design.
	DeleteItemsByDesign(ctx context.Context, designID string) error

	// GetItemsByStatus returns all items in the given status, FIFO order.
	GetItemsByStatus(ctx context.Context, status models.QueueItemStatus) ([]models.SyncQueueItem, error)

	// GetQueueStats returns item counts per status.
	GetQueueStats(ctx context.Context) (models.QueueStats, error)
}

// MetadataRepository is the singleton key-value namespace (device id,
// last sync time).
type MetadataRepository interface {
	// GetValue returns the value stored for key, or ErrNotFound.
	GetValue(ctx context.Context, key string) (string, error)

	// SetValue upserts the value for key.
	SetValue(ctx context.Context, key string, value string) error
}
