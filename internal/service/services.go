package service

import (
	"context"

	"github.com/loomworks/stitchsync/internal/adapter"
	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/store"
)

// ClientServices bundles every service the sync client runs on.
type ClientServices struct {
	Designs   DesignService
	Queue     QueueService
	Sync      SyncManager
	Conflicts ConflictService
	SyncJob   SyncJob
}

// NewClientServices wires the full service graph over the local store, the
// remote API, and the connectivity monitor.
func NewClientServices(
	storages *store.Storages,
	api adapter.RemoteDesignAPI,
	connectivity adapter.Connectivity,
	cfg config.Sync,
	log *logger.Logger,
) *ClientServices {
	queueSvc := NewQueueService(storages, cfg, log)
	designSvc := NewDesignService(storages, queueSvc, log)
	syncMgr := NewSyncManager(storages, api, connectivity, designSvc, queueSvc, cfg, log)
	conflictSvc := NewConflictService(storages, api, designSvc, queueSvc, log)

	return &ClientServices{
		Designs:   designSvc,
		Queue:     queueSvc,
		Sync:      syncMgr,
		Conflicts: conflictSvc,
		SyncJob:   NewSyncJob(syncMgr),
	}
}

// Recover settles state a previous run left behind: queue items stuck in
// flight return to pending, and interrupted "keep both" resolutions are
// completed. Called once at startup, before the first drain.
func (s *ClientServices) Recover(ctx context.Context) error {
	if err := s.Queue.RecoverInFlight(ctx); err != nil {
		return err
	}
	return s.Conflicts.ResumePromotions(ctx)
}
