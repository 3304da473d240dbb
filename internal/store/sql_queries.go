// SPDX-License-Identifier: Apache-2.0

package store

// Fixed-shape statements. Queries whose shape varies (index scans,
// aggregate counts) are built with squirrel in the repositories.
const (
	upsertDesign = `
		INSERT INTO designs (
			local_id,
			server_id,
			name,
			width,
			height,
			mesh_count,
			grid_data,
			folder_id,
			is_draft,
			preview_ref,
			sync_status,
			local_version,
			server_version,
			deleted,
			last_modified_local,
			last_synced_at,
			last_sync_error,
			promotion_state,
			promotion_server_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (local_id) DO UPDATE SET
			server_id           = excluded.server_id,
			name                = excluded.name,
			width               = excluded.width,
			height              = excluded.height,
			mesh_count          = excluded.mesh_count,
			grid_data           = excluded.grid_data,
			folder_id           = excluded.folder_id,
			is_draft            = excluded.is_draft,
			preview_ref         = excluded.preview_ref,
			sync_status         = excluded.sync_status,
			local_version       = excluded.local_version,
			server_version      = excluded.server_version,
			deleted             = excluded.deleted,
			last_modified_local = excluded.last_modified_local,
			last_synced_at      = excluded.last_synced_at,
			last_sync_error     = excluded.last_sync_error,
			promotion_state     = excluded.promotion_state,
			promotion_server_id = excluded.promotion_server_id;`

	deleteDesign = `
		DELETE FROM designs WHERE local_id = ?;`

	insertQueueItem = `
		INSERT INTO sync_queue (
			design_id,
			operation,
			payload,
			status,
			retry_count,
			last_error,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?);`

	replaceQueuePayload = `
		UPDATE sync_queue SET payload = ? WHERE id = ?;`

	setQueueItemStatus = `
		UPDATE sync_queue SET status = ? WHERE id = ?;`

	markQueueItemFailure = `
		UPDATE sync_queue SET
			retry_count = retry_count + 1,
			last_error  = ?,
			status      = ?
		WHERE id = ?;`

	resetQueueItem = `
		UPDATE sync_queue SET
			status      = 'pending',
			retry_count = 0,
			last_error  = ''
		WHERE id = ?;`

	deleteQueueItem = `
		DELETE FROM sync_queue WHERE id = ?;`

	deleteQueueItemsByDesign = `
		DELETE FROM sync_queue WHERE design_id = ?;`

	getMetadataValue = `
		SELECT value FROM sync_metadata WHERE key = ?;`

	setMetadataValue = `
		INSERT INTO sync_metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`
)
