package models

import "time"

// ServerDesign is a design record as the remote authority returns it.
type ServerDesign struct {
	// ID is the server-assigned identifier.
	ID string `json:"id"`

	// Version is the optimistic-concurrency counter stamped by the server
	// on every accepted write.
	Version int64 `json:"version"`

	Name       string     `json:"name"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	MeshCount  int        `json:"mesh_count"`
	GridData   []byte     `json:"grid_data,omitempty"`
	FolderID   *string    `json:"folder_id,omitempty"`
	IsDraft    bool       `json:"is_draft"`
	PreviewRef string     `json:"preview_ref,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// Payload converts the server record into the transmittable snapshot form
// shared with local designs.
func (s *ServerDesign) Payload() DesignPayload {
	return DesignPayload{
		Name:       s.Name,
		Width:      s.Width,
		Height:     s.Height,
		MeshCount:  s.MeshCount,
		GridData:   s.GridData,
		FolderID:   s.FolderID,
		IsDraft:    s.IsDraft,
		PreviewRef: s.PreviewRef,
	}
}

// CreateDesignRequest is the body of a remote create call.
type CreateDesignRequest struct {
	// DeviceID attributes the write for server-side idempotency hints.
	DeviceID string `json:"device_id,omitempty"`

	Payload DesignPayload `json:"payload"`
}

// UpdateDesignRequest is the body of a remote update call.
type UpdateDesignRequest struct {
	// Version is the last server version known to this client. The server
	// rejects the write with a version-conflict signal on mismatch.
	Version int64 `json:"version"`

	// Force bypasses the version check. Used only by the "keep local"
	// conflict resolution.
	Force bool `json:"force,omitempty"`

	Payload DesignPayload `json:"payload"`
}
