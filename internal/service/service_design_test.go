package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/store"
	"github.com/loomworks/stitchsync/models"
)

func testSyncConfig() config.Sync {
	return config.Sync{
		Interval:    time.Minute,
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
		BackoffCap:  4 * time.Millisecond,
	}
}

// newTestDesignSvc builds a design service over in-memory storages.
func newTestDesignSvc(t *testing.T) (DesignService, QueueService, *store.Storages) {
	t.Helper()
	storages := store.NewMemoryStorages()
	queueSvc := NewQueueService(storages, testSyncConfig(), logger.Nop())
	designSvc := NewDesignService(storages, queueSvc, logger.Nop())
	return designSvc, queueSvc, storages
}

func testPayload() models.DesignPayload {
	return models.DesignPayload{
		Name:      "rose garden",
		Width:     120,
		Height:    90,
		MeshCount: 14,
		GridData:  []byte{0x1f, 0x8b, 0x01},
	}
}

// ── CreateOfflineDesign ─────────────────────────────────────────────────────

func TestDesignService_CreateOfflineDesign(t *testing.T) {
	designSvc, queueSvc, _ := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())

	require.NoError(t, err)
	assert.NotEmpty(t, design.LocalID)
	assert.Nil(t, design.ServerID)
	assert.Equal(t, models.StatusPending, design.SyncStatus)
	assert.Equal(t, int64(1), design.LocalVersion)

	stats, err := queueSvc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)

	item, found, err := queueSvc.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, design.LocalID, item.DesignID)
	assert.Equal(t, models.OpCreate, item.Operation)
}

func TestDesignService_CreateOfflineDesign_Validation(t *testing.T) {
	designSvc, _, _ := newTestDesignSvc(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*models.DesignPayload)
		wantErr error
	}{
		{"empty name", func(p *models.DesignPayload) { p.Name = "" }, ErrValidationEmptyName},
		{"zero width", func(p *models.DesignPayload) { p.Width = 0 }, ErrValidationBadDimensions},
		{"negative height", func(p *models.DesignPayload) { p.Height = -1 }, ErrValidationBadDimensions},
		{"zero mesh count", func(p *models.DesignPayload) { p.MeshCount = 0 }, ErrValidationBadMeshCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := testPayload()
			tc.mutate(&payload)

			_, err := designSvc.CreateOfflineDesign(ctx, payload)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// ── UpdateOfflineDesign ─────────────────────────────────────────────────────

func TestDesignService_UpdateOfflineDesign_CoalescesIntoStagedCreate(t *testing.T) {
	designSvc, queueSvc, _ := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	updated, err := designSvc.UpdateOfflineDesign(ctx, design.LocalID, models.DesignPatch{Name: "rose garden v2"})
	require.NoError(t, err)
	assert.Equal(t, "rose garden v2", updated.Name)
	assert.Equal(t, int64(2), updated.LocalVersion)
	// untouched fields survive the patch
	assert.Equal(t, 120, updated.Width)

	// still a single staged item, its payload refreshed in place
	stats, err := queueSvc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)

	item, found, err := queueSvc.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.OpCreate, item.Operation)
	assert.Contains(t, string(item.Payload), "rose garden v2")
}

func TestDesignService_UpdateOfflineDesign_ExplicitFalseViaPointer(t *testing.T) {
	designSvc, _, _ := newTestDesignSvc(t)
	ctx := context.Background()

	payload := testPayload()
	payload.IsDraft = true
	design, err := designSvc.CreateOfflineDesign(ctx, payload)
	require.NoError(t, err)

	published := false
	updated, err := designSvc.UpdateOfflineDesign(ctx, design.LocalID, models.DesignPatch{IsDraft: &published})

	require.NoError(t, err)
	assert.False(t, updated.IsDraft)
}

func TestDesignService_UpdateOfflineDesign_ConflictFrozen(t *testing.T) {
	designSvc, _, storages := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)
	require.NoError(t, designSvc.MarkDesignConflict(ctx, design.LocalID))

	_, err = designSvc.UpdateOfflineDesign(ctx, design.LocalID, models.DesignPatch{Name: "nope"})
	assert.ErrorIs(t, err, ErrConflictActive)

	// frozen means untouched
	stored, err := storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "rose garden", stored.Name)
	assert.Equal(t, models.StatusConflict, stored.SyncStatus)
}

func TestDesignService_UpdateOfflineDesign_NotFound(t *testing.T) {
	designSvc, _, _ := newTestDesignSvc(t)

	_, err := designSvc.UpdateOfflineDesign(context.Background(), "missing", models.DesignPatch{Name: "x"})
	assert.ErrorIs(t, err, ErrDesignNotFound)
}

// ── DeleteOfflineDesign ─────────────────────────────────────────────────────

func TestDesignService_DeleteOfflineDesign_NeverSynced(t *testing.T) {
	designSvc, queueSvc, storages := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	require.NoError(t, designSvc.DeleteOfflineDesign(ctx, design.LocalID))

	// the server never saw it, so nothing remains anywhere
	_, err = storages.Designs.GetDesign(ctx, design.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	stats, err := queueSvc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
}

func TestDesignService_DeleteOfflineDesign_Synced(t *testing.T) {
	designSvc, queueSvc, storages := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	item, found, err := queueSvc.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, queueSvc.Complete(ctx, item.ID))
	require.NoError(t, designSvc.MarkDesignSynced(ctx, design.LocalID, "s1", 1))

	// stage an edit, then delete: the edit must be superseded
	_, err = designSvc.UpdateOfflineDesign(ctx, design.LocalID, models.DesignPatch{Name: "short lived"})
	require.NoError(t, err)

	require.NoError(t, designSvc.DeleteOfflineDesign(ctx, design.LocalID))

	stored, err := storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)

	items, err := storages.Queue.GetItemsByDesign(ctx, design.LocalID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.OpDelete, items[0].Operation)

	// soft-deleted designs disappear from reads and listings
	_, err = designSvc.GetDesign(ctx, design.LocalID)
	assert.ErrorIs(t, err, ErrDesignNotFound)

	listed, err := designSvc.ListDesigns(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDesignService_DeleteOfflineDesign_ConflictFrozen(t *testing.T) {
	designSvc, queueSvc, storages := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	item, _, err := queueSvc.NextPending(ctx)
	require.NoError(t, err)
	require.NoError(t, queueSvc.Complete(ctx, item.ID))
	require.NoError(t, designSvc.MarkDesignSynced(ctx, design.LocalID, "s1", 1))
	require.NoError(t, designSvc.MarkDesignConflict(ctx, design.LocalID))

	// only a resolution may take the design out of the conflict state
	err = designSvc.DeleteOfflineDesign(ctx, design.LocalID)
	assert.ErrorIs(t, err, ErrConflictActive)

	stored, err := storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, stored.SyncStatus)
	assert.False(t, stored.Deleted)

	stats, err := queueSvc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
}

// ── ImportDesignFromServer ──────────────────────────────────────────────────

func TestDesignService_ImportDesignFromServer_New(t *testing.T) {
	designSvc, _, _ := newTestDesignSvc(t)
	ctx := context.Background()

	remote := models.ServerDesign{
		ID:        "s9",
		Version:   4,
		Name:      "imported",
		Width:     60,
		Height:    40,
		MeshCount: 18,
	}

	design, err := designSvc.ImportDesignFromServer(ctx, remote)

	require.NoError(t, err)
	assert.NotEmpty(t, design.LocalID)
	require.NotNil(t, design.ServerID)
	assert.Equal(t, "s9", *design.ServerID)
	assert.Equal(t, int64(4), design.ServerVersion)
	assert.Equal(t, models.StatusSynced, design.SyncStatus)
	assert.Equal(t, "imported", design.Name)
	require.NotNil(t, design.LastSyncedAt)
}

func TestDesignService_ImportDesignFromServer_OverwritesExisting(t *testing.T) {
	designSvc, _, _ := newTestDesignSvc(t)
	ctx := context.Background()

	first, err := designSvc.ImportDesignFromServer(ctx, models.ServerDesign{
		ID: "s9", Version: 4, Name: "imported", Width: 60, Height: 40, MeshCount: 18,
	})
	require.NoError(t, err)

	second, err := designSvc.ImportDesignFromServer(ctx, models.ServerDesign{
		ID: "s9", Version: 5, Name: "imported v2", Width: 60, Height: 40, MeshCount: 18,
	})
	require.NoError(t, err)

	assert.Equal(t, first.LocalID, second.LocalID)
	assert.Equal(t, "imported v2", second.Name)
	assert.Equal(t, int64(5), second.ServerVersion)
}

// ── MarkDesignSynced ────────────────────────────────────────────────────────

func TestDesignService_MarkDesignSynced_BindsServerIDOnce(t *testing.T) {
	designSvc, queueSvc, _ := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	item, _, err := queueSvc.NextPending(ctx)
	require.NoError(t, err)
	require.NoError(t, queueSvc.Complete(ctx, item.ID))

	require.NoError(t, designSvc.MarkDesignSynced(ctx, design.LocalID, "s1", 1))

	synced, err := designSvc.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	require.NotNil(t, synced.ServerID)
	assert.Equal(t, "s1", *synced.ServerID)
	assert.Equal(t, models.StatusSynced, synced.SyncStatus)

	// a later confirmation must not rebind the server id
	require.NoError(t, designSvc.MarkDesignSynced(ctx, design.LocalID, "s2", 2))

	rebound, err := designSvc.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "s1", *rebound.ServerID)
	assert.Equal(t, int64(2), rebound.ServerVersion)
}

func TestDesignService_MarkDesignSynced_StaysPendingWithStagedWork(t *testing.T) {
	designSvc, _, _ := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	// the staged create is still in the queue when confirmation lands
	require.NoError(t, designSvc.MarkDesignSynced(ctx, design.LocalID, "s1", 1))

	stored, err := designSvc.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.SyncStatus)
}

// ── MarkDesignError ─────────────────────────────────────────────────────────

func TestDesignService_MarkDesignError_RecordsAndClearsReason(t *testing.T) {
	designSvc, _, _ := newTestDesignSvc(t)
	ctx := context.Background()

	design, err := designSvc.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	require.NoError(t, designSvc.MarkDesignError(ctx, design.LocalID, "server rejected payload"))

	errored, err := designSvc.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, errored.SyncStatus)
	assert.Equal(t, "server rejected payload", errored.LastSyncError)

	require.NoError(t, designSvc.MarkDesignPending(ctx, design.LocalID))

	recovered, err := designSvc.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Empty(t, recovered.LastSyncError)
}
