package models

import (
	"encoding/json"
	"time"
)

// SyncOperation is the class of remote mutation a queue item carries.
type SyncOperation string

const (
	OpCreate SyncOperation = "create"
	OpUpdate SyncOperation = "update"
	OpDelete SyncOperation = "delete"
)

// QueueItemStatus describes a queue item's processing state.
type QueueItemStatus string

const (
	// ItemPending items are visible to the drain loop, oldest first.
	ItemPending QueueItemStatus = "pending"
	// ItemProcessing brackets an in-flight remote call.
	ItemProcessing QueueItemStatus = "processing"
	// ItemFailed items exhausted their retries and wait for a manual reset.
	ItemFailed QueueItemStatus = "failed"
)

// SyncQueueItem is one durable staged mutation awaiting network application.
type SyncQueueItem struct {
	// ID orders items with equal CreatedAt; assigned by the store.
	ID int64 `json:"id"`

	// DesignID references the OfflineDesign the mutation belongs to.
	DesignID string `json:"design_id"`

	// Operation is the remote mutation class.
	Operation SyncOperation `json:"operation"`

	// Payload is the design snapshot taken at enqueue time, JSON-encoded.
	// Coalescing replaces it in place so only the latest state is sent.
	Payload json.RawMessage `json:"payload"`

	// Status is the item's processing state.
	Status QueueItemStatus `json:"status"`

	// RetryCount is the number of failed attempts so far.
	RetryCount int `json:"retry_count"`

	// LastError is the message of the most recent failure, if any.
	LastError string `json:"last_error,omitempty"`

	// CreatedAt defines FIFO order across all designs.
	CreatedAt time.Time `json:"created_at"`
}

// QueueStats aggregates queue item counts per status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}
