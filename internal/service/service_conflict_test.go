package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/loomworks/stitchsync/internal/adapter"
	"github.com/loomworks/stitchsync/internal/store"
	"github.com/loomworks/stitchsync/models"
)

// seedConflict stores a design frozen by a rejected write.
func seedConflict(t *testing.T, env *syncEnv, localID, serverID string, version int64) models.OfflineDesign {
	t.Helper()
	design := seedSynced(t, env, localID, serverID, version)
	design.SyncStatus = models.StatusConflict
	design.Name = "local line of work"
	design.LocalVersion = 2
	require.NoError(t, env.storages.Designs.SaveDesign(context.Background(), design))
	return design
}

// ── Conflicts ───────────────────────────────────────────────────────────────

func TestConflictService_Conflicts_OldestFirst(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	older := seedConflict(t, env, "d-old", "s1", 2)
	older.LastModifiedLocal = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.storages.Designs.SaveDesign(ctx, older))
	seedConflict(t, env, "d-new", "s2", 2)
	seedSynced(t, env, "d-clean", "s3", 1)

	conflicts, err := env.svcs.Conflicts.Conflicts(ctx)

	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "d-old", conflicts[0].LocalID)
	assert.Equal(t, "d-new", conflicts[1].LocalID)
}

// ── ResolveKeepLocal ────────────────────────────────────────────────────────

func TestConflictService_ResolveKeepLocal(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	env.api.EXPECT().UpdateDesign(gomock.Any(), "s1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, req models.UpdateDesignRequest) (models.ServerDesign, error) {
			assert.True(t, req.Force)
			assert.Equal(t, "local line of work", req.Payload.Name)
			return models.ServerDesign{ID: "s1", Version: 7, Name: req.Payload.Name}, nil
		})

	resolved, err := env.svcs.Conflicts.ResolveKeepLocal(ctx, design.LocalID)

	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, resolved.SyncStatus)
	assert.Equal(t, int64(7), resolved.ServerVersion)
	assert.Equal(t, "local line of work", resolved.Name)
}

func TestConflictService_ResolveKeepLocal_NetworkFailureKeepsConflict(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	env.api.EXPECT().UpdateDesign(gomock.Any(), "s1", gomock.Any()).
		Return(models.ServerDesign{}, fmt.Errorf("%w: connection refused", adapter.ErrNetwork))

	_, err := env.svcs.Conflicts.ResolveKeepLocal(ctx, design.LocalID)

	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrNetwork)

	// resolution can simply be retried later
	still, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, still.SyncStatus)
}

func TestConflictService_ResolveKeepLocal_RepublishesRemotelyDeleted(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	env.api.EXPECT().UpdateDesign(gomock.Any(), "s1", gomock.Any()).
		Return(models.ServerDesign{}, adapter.ErrNotFound)
	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		Return(models.ServerDesign{ID: "s1-new", Version: 1}, nil)

	resolved, err := env.svcs.Conflicts.ResolveKeepLocal(ctx, design.LocalID)

	require.NoError(t, err)
	require.NotNil(t, resolved.ServerID)
	assert.Equal(t, "s1-new", *resolved.ServerID)
	assert.Equal(t, int64(1), resolved.ServerVersion)
	assert.Equal(t, models.StatusSynced, resolved.SyncStatus)
}

func TestConflictService_ResolveKeepLocal_NotInConflict(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	seedSynced(t, env, "d1", "s1", 3)

	_, err := env.svcs.Conflicts.ResolveKeepLocal(ctx, "d1")
	assert.ErrorIs(t, err, ErrNoConflict)
}

// ── ResolveKeepServer ───────────────────────────────────────────────────────

func TestConflictService_ResolveKeepServer(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	env.api.EXPECT().GetDesign(gomock.Any(), "s1").
		Return(models.ServerDesign{ID: "s1", Version: 5, Name: "server line of work", Width: 80, Height: 60, MeshCount: 16}, nil)

	resolved, err := env.svcs.Conflicts.ResolveKeepServer(ctx, design.LocalID)

	require.NoError(t, err)
	assert.Equal(t, design.LocalID, resolved.LocalID)
	assert.Equal(t, "server line of work", resolved.Name)
	assert.Equal(t, int64(5), resolved.ServerVersion)
	assert.Equal(t, models.StatusSynced, resolved.SyncStatus)
}

func TestConflictService_ResolveKeepServer_DeletedRemotely(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	env.api.EXPECT().GetDesign(gomock.Any(), "s1").
		Return(models.ServerDesign{}, adapter.ErrNotFound)

	resolved, err := env.svcs.Conflicts.ResolveKeepServer(ctx, design.LocalID)

	require.NoError(t, err)
	assert.Empty(t, resolved.LocalID)

	_, err = env.storages.Designs.GetDesign(ctx, design.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ── ResolveKeepBoth ─────────────────────────────────────────────────────────

func TestConflictService_ResolveKeepBoth(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.CreateDesignRequest) (models.ServerDesign, error) {
			assert.Equal(t, "local line of work (copy)", req.Payload.Name)
			return models.ServerDesign{ID: "s-copy", Version: 1, Name: req.Payload.Name, Width: 120, Height: 90, MeshCount: 14}, nil
		})
	env.api.EXPECT().GetDesign(gomock.Any(), "s-copy").
		Return(models.ServerDesign{ID: "s-copy", Version: 1, Name: "local line of work (copy)", Width: 120, Height: 90, MeshCount: 14}, nil)
	env.api.EXPECT().GetDesign(gomock.Any(), "s1").
		Return(models.ServerDesign{ID: "s1", Version: 5, Name: "server line of work", Width: 80, Height: 60, MeshCount: 16}, nil)

	original, duplicate, err := env.svcs.Conflicts.ResolveKeepBoth(ctx, design.LocalID)

	require.NoError(t, err)

	// the original adopts the server copy and sheds its promotion marker
	assert.Equal(t, design.LocalID, original.LocalID)
	assert.Equal(t, "server line of work", original.Name)
	assert.Equal(t, models.StatusSynced, original.SyncStatus)
	assert.Empty(t, original.PromotionState)
	assert.Nil(t, original.PromotionServerID)

	// the duplicate carries the local work under a brand-new server id
	assert.NotEqual(t, original.LocalID, duplicate.LocalID)
	require.NotNil(t, duplicate.ServerID)
	assert.Equal(t, "s-copy", *duplicate.ServerID)
	assert.Equal(t, "local line of work (copy)", duplicate.Name)
	assert.Equal(t, models.StatusSynced, duplicate.SyncStatus)
}

func TestConflictService_ResolveKeepBoth_CreateFailureRollsBack(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		Return(models.ServerDesign{}, fmt.Errorf("%w: connection refused", adapter.ErrNetwork))

	_, _, err := env.svcs.Conflicts.ResolveKeepBoth(ctx, design.LocalID)

	require.Error(t, err)

	still, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, still.SyncStatus)
	assert.Empty(t, still.PromotionState)
}

// ── ResumePromotions ────────────────────────────────────────────────────────

func TestConflictService_ResumePromotions_FinishesInterruptedKeepBoth(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	// crashed after the remote create: marker and copy id are durable
	design := seedConflict(t, env, "d1", "s1", 3)
	copyID := "s-copy"
	design.PromotionState = models.PromotionPending
	design.PromotionServerID = &copyID
	require.NoError(t, env.storages.Designs.SaveDesign(ctx, design))

	env.api.EXPECT().GetDesign(gomock.Any(), "s-copy").
		Return(models.ServerDesign{ID: "s-copy", Version: 1, Name: "local line of work (copy)", Width: 120, Height: 90, MeshCount: 14}, nil)
	env.api.EXPECT().GetDesign(gomock.Any(), "s1").
		Return(models.ServerDesign{ID: "s1", Version: 5, Name: "server line of work", Width: 80, Height: 60, MeshCount: 16}, nil)

	require.NoError(t, env.svcs.Conflicts.ResumePromotions(ctx))

	original, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, original.SyncStatus)
	assert.Empty(t, original.PromotionState)

	duplicate, err := env.storages.Designs.GetDesignByServerID(ctx, "s-copy")
	require.NoError(t, err)
	assert.Equal(t, "local line of work (copy)", duplicate.Name)
}

func TestConflictService_ResumePromotions_ClearsMarkerWithoutCopyID(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	// crashed before the remote create was confirmed
	design := seedConflict(t, env, "d1", "s1", 3)
	design.PromotionState = models.PromotionPending
	require.NoError(t, env.storages.Designs.SaveDesign(ctx, design))

	require.NoError(t, env.svcs.Conflicts.ResumePromotions(ctx))

	still, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Empty(t, still.PromotionState)
	assert.Equal(t, models.StatusConflict, still.SyncStatus)
}
