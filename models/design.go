package models

import "time"

// SyncStatus describes where a locally stored design sits in its
// synchronization lifecycle.
type SyncStatus string

const (
	// StatusSynced means the local copy matches the last known server state.
	StatusSynced SyncStatus = "synced"
	// StatusPending means the design has local changes awaiting upload.
	StatusPending SyncStatus = "pending"
	// StatusProcessing means a queue item for this design is currently
	// being applied against the remote API.
	StatusProcessing SyncStatus = "processing"
	// StatusConflict means local and remote copies diverged beyond what the
	// version check can reconcile; the design is frozen until an explicit
	// resolution.
	StatusConflict SyncStatus = "conflict"
	// StatusError means sync retries were exhausted; the design stays
	// editable and can be re-queued manually.
	StatusError SyncStatus = "error"
)

// PromotionPending marks a design whose "keep both" resolution has started
// but not yet completed. The marker survives a crash between the two
// single-record writes the resolution performs.
const PromotionPending = "pending"

// OfflineDesign is the local persistence model for a grid-based design
// tracked both on this device and on the remote authority.
type OfflineDesign struct {
	// LocalID is the permanent device-local identifier, assigned at creation.
	LocalID string `json:"local_id"`

	// ServerID is the remote identifier. Nil until the first successful
	// create; once bound it never changes.
	ServerID *string `json:"server_id,omitempty"`

	// Name is the human-readable design name.
	Name string `json:"name"`

	// Width and Height are the grid dimensions in cells.
	Width  int `json:"width"`
	Height int `json:"height"`

	// MeshCount is the fabric mesh density the design targets.
	MeshCount int `json:"mesh_count"`

	// GridData holds the compressed cell grid payload. Opaque to this engine.
	GridData []byte `json:"grid_data,omitempty"`

	// FolderID is an optional logical container used to group designs.
	FolderID *string `json:"folder_id,omitempty"`

	// IsDraft marks designs not yet published by the user.
	IsDraft bool `json:"is_draft"`

	// PreviewRef points at the rendered preview asset, if any.
	PreviewRef string `json:"preview_ref,omitempty"`

	// SyncStatus is the design's position in the sync state machine.
	SyncStatus SyncStatus `json:"sync_status"`

	// LocalVersion is a monotonic counter incremented on every local edit.
	LocalVersion int64 `json:"local_version"`

	// ServerVersion is the last version the remote authority confirmed.
	ServerVersion int64 `json:"server_version"`

	// Deleted marks a soft-deleted design awaiting its remote delete.
	Deleted bool `json:"deleted"`

	// LastModifiedLocal is the timestamp of the most recent local edit.
	LastModifiedLocal time.Time `json:"last_modified_local"`

	// LastSyncedAt is the timestamp of the last successful sync, if any.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	// LastSyncError describes the failure that put the design into
	// StatusError. Empty in every other state.
	LastSyncError string `json:"last_sync_error,omitempty"`

	// PromotionState is empty, or PromotionPending while a "keep both"
	// resolution is mid-flight for this design.
	PromotionState string `json:"promotion_state,omitempty"`

	// PromotionServerID records the remote id of the copy created by a
	// "keep both" resolution, so a crashed resolution can be completed.
	PromotionServerID *string `json:"promotion_server_id,omitempty"`
}

// Payload extracts the transmittable snapshot of the design's content
// fields. This is what queue items capture at enqueue time.
func (d *OfflineDesign) Payload() DesignPayload {
	return DesignPayload{
		Name:       d.Name,
		Width:      d.Width,
		Height:     d.Height,
		MeshCount:  d.MeshCount,
		GridData:   d.GridData,
		FolderID:   d.FolderID,
		IsDraft:    d.IsDraft,
		PreviewRef: d.PreviewRef,
	}
}

// ApplyPayload overwrites the design's content fields from a payload
// snapshot, leaving identity and sync bookkeeping untouched.
func (d *OfflineDesign) ApplyPayload(p DesignPayload) {
	d.Name = p.Name
	d.Width = p.Width
	d.Height = p.Height
	d.MeshCount = p.MeshCount
	d.GridData = p.GridData
	d.FolderID = p.FolderID
	d.IsDraft = p.IsDraft
	d.PreviewRef = p.PreviewRef
}

// DesignPayload is the wire snapshot of a design's user-visible content.
// It is stored on queue items and sent to the remote API verbatim.
type DesignPayload struct {
	Name       string  `json:"name"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	MeshCount  int     `json:"mesh_count"`
	GridData   []byte  `json:"grid_data,omitempty"`
	FolderID   *string `json:"folder_id,omitempty"`
	IsDraft    bool    `json:"is_draft"`
	PreviewRef string  `json:"preview_ref,omitempty"`
}

// DesignPatch carries a partial edit to an existing design. Zero-valued
// fields are left unchanged when the patch is merged; pointer fields allow
// explicitly setting false/empty values.
type DesignPatch struct {
	Name       string  `json:"name,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	MeshCount  int     `json:"mesh_count,omitempty"`
	GridData   []byte  `json:"grid_data,omitempty"`
	FolderID   *string `json:"folder_id,omitempty"`
	IsDraft    *bool   `json:"is_draft,omitempty"`
	PreviewRef string  `json:"preview_ref,omitempty"`
}
