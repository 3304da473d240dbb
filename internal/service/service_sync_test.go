package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/loomworks/stitchsync/internal/adapter"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/mock"
	"github.com/loomworks/stitchsync/internal/store"
	"github.com/loomworks/stitchsync/models"
)

// stubConnectivity — a trivial Connectivity stand-in, no mockgen needed.
type stubConnectivity struct {
	mu      sync.Mutex
	online  bool
	restore func()
}

func (s *stubConnectivity) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *stubConnectivity) OnRestore(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restore = fn
	return func() {}
}

func (s *stubConnectivity) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

func (s *stubConnectivity) fireRestore() {
	s.mu.Lock()
	fn := s.restore
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type syncEnv struct {
	storages *store.Storages
	api      *mock.MockRemoteDesignAPI
	conn     *stubConnectivity
	svcs     *ClientServices
}

func newSyncEnv(t *testing.T, online bool) *syncEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	env := &syncEnv{
		storages: store.NewMemoryStorages(),
		api:      mock.NewMockRemoteDesignAPI(ctrl),
		conn:     &stubConnectivity{online: online},
	}
	env.svcs = NewClientServices(env.storages, env.api, env.conn, testSyncConfig(), logger.Nop())
	t.Cleanup(env.svcs.Sync.Close)

	return env
}

// collectEvents records every published event type in order.
func collectEvents(t *testing.T, m SyncManager) *[]EventType {
	t.Helper()
	var events []EventType
	unsubscribe := m.Subscribe(func(e Event) { events = append(events, e.Type) })
	t.Cleanup(unsubscribe)
	return &events
}

// seedSynced stores a design already confirmed by the server.
func seedSynced(t *testing.T, env *syncEnv, localID, serverID string, version int64) models.OfflineDesign {
	t.Helper()
	sid := serverID
	design := models.OfflineDesign{
		LocalID:           localID,
		ServerID:          &sid,
		SyncStatus:        models.StatusSynced,
		LocalVersion:      1,
		ServerVersion:     version,
		LastModifiedLocal: time.Now().UTC(),
	}
	design.ApplyPayload(testPayload())
	require.NoError(t, env.storages.Designs.SaveDesign(context.Background(), design))
	return design
}

// ── create path ─────────────────────────────────────────────────────────────

func TestSyncManager_ProcessQueue_CreateBindsServerID(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()
	events := collectEvents(t, env.svcs.Sync)

	design, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.CreateDesignRequest) (models.ServerDesign, error) {
			assert.Equal(t, "rose garden", req.Payload.Name)
			return models.ServerDesign{ID: "s1", Version: 1, Name: req.Payload.Name}, nil
		})

	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	synced, err := env.svcs.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	require.NotNil(t, synced.ServerID)
	assert.Equal(t, "s1", *synced.ServerID)
	assert.Equal(t, int64(1), synced.ServerVersion)
	assert.Equal(t, models.StatusSynced, synced.SyncStatus)

	pending, err := env.svcs.Sync.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	lastSync, err := env.svcs.Sync.LastSyncTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, lastSync)

	assert.Equal(t, []EventType{EventSyncStarted, EventItemSynced, EventSyncFinished}, *events)
}

// ── update path ─────────────────────────────────────────────────────────────

func TestSyncManager_ProcessQueue_UpdateSendsKnownServerVersion(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedSynced(t, env, "d1", "s1", 3)
	_, err := env.svcs.Designs.UpdateOfflineDesign(ctx, design.LocalID, models.DesignPatch{Name: "rose garden v2"})
	require.NoError(t, err)

	env.api.EXPECT().UpdateDesign(gomock.Any(), "s1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, req models.UpdateDesignRequest) (models.ServerDesign, error) {
			assert.Equal(t, int64(3), req.Version)
			assert.False(t, req.Force)
			return models.ServerDesign{ID: "s1", Version: 4, Name: req.Payload.Name}, nil
		})

	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	synced, err := env.svcs.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), synced.ServerVersion)
	assert.Equal(t, models.StatusSynced, synced.SyncStatus)
}

func TestSyncManager_ProcessQueue_VersionConflictFreezesDesign(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()
	events := collectEvents(t, env.svcs.Sync)

	design := seedSynced(t, env, "d1", "s1", 3)
	_, err := env.svcs.Designs.UpdateOfflineDesign(ctx, design.LocalID, models.DesignPatch{Name: "mine"})
	require.NoError(t, err)

	env.api.EXPECT().UpdateDesign(gomock.Any(), "s1", gomock.Any()).
		Return(models.ServerDesign{}, fmt.Errorf("%w: submitted version 3 is stale", adapter.ErrVersionConflict))

	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	frozen, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, frozen.SyncStatus)
	// local edits survive the freeze
	assert.Equal(t, "mine", frozen.Name)

	// the rejected item leaves the queue; resolution owns the design now
	pending, err := env.svcs.Sync.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	assert.Contains(t, *events, EventConflictDetected)
}

func TestSyncManager_ProcessQueue_UpdateOfRemotelyDeletedConflicts(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedSynced(t, env, "d1", "s1", 3)
	_, err := env.svcs.Designs.UpdateOfflineDesign(ctx, design.LocalID, models.DesignPatch{Name: "mine"})
	require.NoError(t, err)

	env.api.EXPECT().UpdateDesign(gomock.Any(), "s1", gomock.Any()).
		Return(models.ServerDesign{}, adapter.ErrNotFound)

	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	frozen, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, frozen.SyncStatus)
}

// ── delete path ─────────────────────────────────────────────────────────────

func TestSyncManager_ProcessQueue_DeleteAlreadyGoneIsSuccess(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedSynced(t, env, "d1", "s1", 3)
	require.NoError(t, env.svcs.Designs.DeleteOfflineDesign(ctx, design.LocalID))

	env.api.EXPECT().DeleteDesign(gomock.Any(), "s1").Return(adapter.ErrNotFound)

	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	_, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	pending, err := env.svcs.Sync.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

// ── offline / reentrancy ────────────────────────────────────────────────────

func TestSyncManager_ProcessQueue_OfflineIsNoOp(t *testing.T) {
	env := newSyncEnv(t, false)
	ctx := context.Background()

	_, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	// no API expectations: any remote call would fail the test
	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	pending, err := env.svcs.Sync.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestSyncManager_ProcessQueue_SecondDrainIsNoOpWhileFirstRuns(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	_, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)
	_, err = env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		Times(2).
		DoAndReturn(func(context.Context, models.CreateDesignRequest) (models.ServerDesign, error) {
			n := calls.Add(1)
			if n == 1 {
				close(started)
				<-release
			}
			return models.ServerDesign{ID: fmt.Sprintf("s%d", n), Version: 1}, nil
		})

	first := make(chan error, 1)
	go func() { first <- env.svcs.Sync.ProcessQueue(ctx) }()
	<-started

	// the busy flag turns the overlapping drain into an immediate no-op:
	// it returns while the first call is still in flight, without claiming
	// the second item
	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))
	assert.True(t, env.svcs.Sync.IsSyncing())
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	require.NoError(t, <-first)

	pending, err := env.svcs.Sync.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSyncManager_ProcessQueue_CancellationStopsBetweenItems(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)
	second, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	// cancellation lands while the first item is in flight; the call is
	// never interrupted, the drain stops before claiming the next item
	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.CreateDesignRequest) (models.ServerDesign, error) {
			cancel()
			return models.ServerDesign{ID: "s1", Version: 1}, nil
		})

	err = env.svcs.Sync.ProcessQueue(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	done, err := env.svcs.Designs.GetDesign(context.Background(), first.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, done.SyncStatus)

	waiting, err := env.svcs.Designs.GetDesign(context.Background(), second.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, waiting.SyncStatus)

	pending, err := env.svcs.Sync.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
	assert.False(t, env.svcs.Sync.IsSyncing())
}

// ── conflict freeze ─────────────────────────────────────────────────────────

func TestSyncManager_ProcessQueue_ConflictedDesignIsNeverAutoResynced(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	// a stale update snapshot staged before the freeze landed
	_, err := env.svcs.Queue.Enqueue(ctx, design, models.OpUpdate)
	require.NoError(t, err)

	// no API expectations: any remote call would fail the test
	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	frozen, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, frozen.SyncStatus)
	assert.Equal(t, "local line of work", frozen.Name)

	// the snapshot is dropped; resolution transmits from the record
	pending, err := env.svcs.Sync.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSyncManager_DeleteOfConflictedDesignRejected(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design := seedConflict(t, env, "d1", "s1", 3)

	err := env.svcs.Designs.DeleteOfflineDesign(ctx, design.LocalID)
	assert.ErrorIs(t, err, ErrConflictActive)

	// nothing staged, nothing sent: the diverged server copy is untouched
	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	still, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, still.SyncStatus)
	assert.False(t, still.Deleted)
}

// ── retry policy ────────────────────────────────────────────────────────────

func TestSyncManager_ProcessQueue_TransientFailuresExhaustBudget(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()
	events := collectEvents(t, env.svcs.Sync)

	design, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	// budget is 3: same item is retried within one drain until it fails over
	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		Return(models.ServerDesign{}, fmt.Errorf("%w: connection refused", adapter.ErrNetwork)).
		Times(3)

	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	errored, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, errored.SyncStatus)
	// the record itself explains its error state
	assert.Contains(t, errored.LastSyncError, "connection refused")

	failed, err := env.svcs.Queue.FailedItems(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].RetryCount)

	assert.Contains(t, *events, EventSyncFailed)
}

func TestSyncManager_ProcessQueue_UnauthorizedFailsWithoutRetry(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	design, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		Return(models.ServerDesign{}, adapter.ErrUnauthorized)

	require.NoError(t, env.svcs.Sync.ProcessQueue(ctx))

	errored, err := env.storages.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, errored.SyncStatus)
	assert.NotEmpty(t, errored.LastSyncError)
}

func TestSyncManager_RetryDesign_ResetsFailedWork(t *testing.T) {
	// offline so the triggered background drain stays inactive
	env := newSyncEnv(t, false)
	ctx := context.Background()

	design, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	item, found, err := env.svcs.Queue.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, env.svcs.Queue.FailPermanently(ctx, item, assert.AnError))
	require.NoError(t, env.svcs.Designs.MarkDesignError(ctx, design.LocalID, assert.AnError.Error()))

	require.NoError(t, env.svcs.Sync.RetryDesign(ctx, design.LocalID))

	recovered, err := env.svcs.Designs.GetDesign(ctx, design.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, recovered.SyncStatus)
	assert.Empty(t, recovered.LastSyncError)

	pending, err := env.svcs.Sync.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

// ── connectivity restore trigger ────────────────────────────────────────────

func TestSyncManager_ConnectivityRestoreTriggersDrain(t *testing.T) {
	env := newSyncEnv(t, true)
	ctx := context.Background()

	_, err := env.svcs.Designs.CreateOfflineDesign(ctx, testPayload())
	require.NoError(t, err)

	env.api.EXPECT().CreateDesign(gomock.Any(), gomock.Any()).
		Return(models.ServerDesign{ID: "s1", Version: 1}, nil)

	done := make(chan struct{})
	unsubscribe := env.svcs.Sync.Subscribe(func(e Event) {
		if e.Type == EventSyncFinished {
			close(done)
		}
	})
	defer unsubscribe()

	env.conn.fireRestore()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not run after connectivity restore")
	}
}
