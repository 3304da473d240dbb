package models

import "time"

// Well-known keys of the metadata singleton namespace.
const (
	MetaKeyDeviceID     = "device_id"
	MetaKeyLastSyncTime = "last_sync_time"
)

// SyncMetadata is the singleton record describing this device's sync
// identity and history.
type SyncMetadata struct {
	// DeviceID is a stable identifier generated on first open.
	DeviceID string `json:"device_id"`

	// LastSyncTime is when the drain loop last completed successfully.
	// Nil until the first successful drain.
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
}
