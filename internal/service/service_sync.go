// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/loomworks/stitchsync/internal/adapter"
	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/store"
	"github.com/loomworks/stitchsync/models"
)

type syncManager struct {
	storages     *store.Storages
	api          adapter.RemoteDesignAPI
	connectivity adapter.Connectivity
	designs      DesignService
	queue        QueueService
	bus          *EventBus
	cfg          config.Sync
	logger       *logger.Logger

	syncing     atomic.Bool
	unsubscribe func()
}

// NewSyncManager wires the drain loop over the store, the remote API, and
// the connectivity monitor. It subscribes itself to connectivity restores
// so a returning network triggers a drain without waiting for the job tick.
func NewSyncManager(
	storages *store.Storages,
	api adapter.RemoteDesignAPI,
	connectivity adapter.Connectivity,
	designs DesignService,
	queue QueueService,
	cfg config.Sync,
	log *logger.Logger,
) SyncManager {
	m := &syncManager{
		storages:     storages,
		api:          api,
		connectivity: connectivity,
		designs:      designs,
		queue:        queue,
		bus:          NewEventBus(),
		cfg:          cfg,
		logger:       log,
	}
	m.unsubscribe = connectivity.OnRestore(func() {
		log.Info().Msg("connectivity restored, triggering sync")
		m.SyncNow(context.Background())
	})
	return m
}

func (m *syncManager) ProcessQueue(ctx context.Context) error {
	if !m.connectivity.Online() {
		m.logger.Debug().
			Str("func", "syncManager.ProcessQueue").
			Msg("offline, drain skipped")
		return nil
	}
	// Single-flight: overlapping triggers are no-ops.
	if !m.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer m.syncing.Store(false)

	deviceID, err := m.storages.Metadata.GetValue(ctx, models.MetaKeyDeviceID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read device id: %w", err)
	}

	m.bus.Publish(Event{Type: EventSyncStarted})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, found, err := m.queue.NextPending(ctx)
		if err != nil {
			m.bus.Publish(Event{Type: EventSyncFailed, Err: err})
			return err
		}
		if !found {
			break
		}

		if err := m.applyItem(ctx, item, deviceID); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				m.bus.Publish(Event{Type: EventSyncFailed, DesignID: item.DesignID, Err: err})
			}
			return err
		}
	}

	now := time.Now().UTC()
	if err := m.storages.Metadata.SetValue(ctx, models.MetaKeyLastSyncTime, now.Format(time.RFC3339Nano)); err != nil {
		m.logger.Warn().Err(err).
			Str("func", "syncManager.ProcessQueue").
			Msg("failed to record last sync time")
	}

	m.bus.Publish(Event{Type: EventSyncFinished})
	return nil
}

func (m *syncManager) SyncNow(ctx context.Context) {
	go func() {
		if err := m.ProcessQueue(ctx); err != nil {
			m.logger.Err(err).
				Str("func", "syncManager.SyncNow").
				Msg("drain aborted")
		}
	}()
}

func (m *syncManager) RetryDesign(ctx context.Context, localID string) error {
	reset, err := m.queue.ResetFailedForDesign(ctx, localID)
	if err != nil {
		return err
	}
	if reset == 0 {
		return nil
	}

	design, err := m.storages.Designs.GetDesign(ctx, localID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("retry design %s: %w", localID, ErrDesignNotFound)
		}
		return fmt.Errorf("load design %s: %w", localID, err)
	}
	if design.SyncStatus == models.StatusError {
		if err := m.designs.MarkDesignPending(ctx, localID); err != nil {
			return err
		}
	}

	m.SyncNow(ctx)
	return nil
}

func (m *syncManager) IsSyncing() bool {
	return m.syncing.Load()
}

func (m *syncManager) LastSyncTime(ctx context.Context) (*time.Time, error) {
	value, err := m.storages.Metadata.GetValue(ctx, models.MetaKeyLastSyncTime)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read last sync time: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("parse last sync time %q: %w", value, err)
	}
	return &t, nil
}

func (m *syncManager) PendingCount(ctx context.Context) (int, error) {
	stats, err := m.queue.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Pending, nil
}

func (m *syncManager) QueueStats(ctx context.Context) (models.QueueStats, error) {
	return m.queue.Stats(ctx)
}

func (m *syncManager) DesignSyncCounts(ctx context.Context) (map[models.SyncStatus]int, error) {
	return m.designs.CountByStatus(ctx)
}

func (m *syncManager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.bus.Subscribe(fn)
}

func (m *syncManager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// applyItem pushes one staged mutation to the server and settles the
// design's state from the outcome. Only storage failures and cancellation
// abort the drain; remote failures are absorbed into the retry policy.
func (m *syncManager) applyItem(ctx context.Context, item models.SyncQueueItem, deviceID string) error {
	design, err := m.storages.Designs.GetDesign(ctx, item.DesignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Orphaned item, its design is already gone.
			return m.queue.Complete(ctx, item.ID)
		}
		return fmt.Errorf("load design %s: %w", item.DesignID, err)
	}

	// A frozen design belongs to conflict resolution. The record already
	// holds the latest local state and every resolution clears the queue
	// itself, so a staged snapshot left over from before the freeze is
	// obsolete; drop it instead of sending it.
	if design.SyncStatus == models.StatusConflict {
		m.logger.Debug().
			Str("func", "syncManager.applyItem").
			Str("design_id", item.DesignID).
			Msg("design frozen in conflict, staged item dropped")
		return m.queue.Complete(ctx, item.ID)
	}

	if err := m.queue.MarkProcessing(ctx, item.ID); err != nil {
		return err
	}
	if err := m.designs.MarkDesignProcessing(ctx, item.DesignID); err != nil {
		return err
	}

	remoteErr := m.dispatch(ctx, item, design, deviceID)
	if remoteErr == nil {
		if err := m.queue.Complete(ctx, item.ID); err != nil {
			return err
		}
		pending, err := m.PendingCount(ctx)
		if err != nil {
			return err
		}
		m.bus.Publish(Event{Type: EventItemSynced, DesignID: item.DesignID, Pending: pending})
		return nil
	}

	switch {
	case isConflict(item.Operation, remoteErr):
		if err := m.queue.Complete(ctx, item.ID); err != nil {
			return err
		}
		if err := m.designs.MarkDesignConflict(ctx, item.DesignID); err != nil {
			return err
		}
		m.logger.Warn().
			Str("func", "syncManager.applyItem").
			Str("design_id", item.DesignID).
			Msg("server rejected staged mutation, design frozen in conflict")
		m.bus.Publish(Event{Type: EventConflictDetected, DesignID: item.DesignID, Err: remoteErr})
		return nil

	case errors.Is(remoteErr, adapter.ErrValidation) || errors.Is(remoteErr, adapter.ErrUnauthorized):
		if err := m.queue.FailPermanently(ctx, item, remoteErr); err != nil {
			return err
		}
		if err := m.designs.MarkDesignError(ctx, item.DesignID, remoteErr.Error()); err != nil {
			return err
		}
		m.bus.Publish(Event{Type: EventSyncFailed, DesignID: item.DesignID, Err: remoteErr})
		return nil

	default:
		exhausted, err := m.queue.Fail(ctx, item, remoteErr)
		if err != nil {
			return err
		}
		if exhausted {
			if err := m.designs.MarkDesignError(ctx, item.DesignID, remoteErr.Error()); err != nil {
				return err
			}
			m.bus.Publish(Event{Type: EventSyncFailed, DesignID: item.DesignID, Err: remoteErr})
			return nil
		}
		if err := m.designs.MarkDesignPending(ctx, item.DesignID); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff(item.RetryCount)):
		}
		return nil
	}
}

func (m *syncManager) dispatch(ctx context.Context, item models.SyncQueueItem, design models.OfflineDesign, deviceID string) error {
	switch item.Operation {
	case models.OpCreate:
		return m.applyCreate(ctx, item, design, deviceID)

	case models.OpUpdate:
		// A design the server has not confirmed yet cannot be updated in
		// place; its first write is still a create.
		if design.ServerID == nil {
			return m.applyCreate(ctx, item, design, deviceID)
		}

		var payload models.DesignPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			return fmt.Errorf("%w: decode staged payload: %w", adapter.ErrValidation, err)
		}

		remote, err := m.api.UpdateDesign(ctx, *design.ServerID, models.UpdateDesignRequest{
			Version: design.ServerVersion,
			Payload: payload,
		})
		if err != nil {
			return err
		}
		return m.designs.MarkDesignSynced(ctx, design.LocalID, remote.ID, remote.Version)

	case models.OpDelete:
		if design.ServerID != nil {
			err := m.api.DeleteDesign(ctx, *design.ServerID)
			if err != nil && !errors.Is(err, adapter.ErrNotFound) {
				return err
			}
		}
		return m.designs.PurgeDesign(ctx, design.LocalID)

	default:
		return fmt.Errorf("%w: unknown operation %q", adapter.ErrValidation, item.Operation)
	}
}

func (m *syncManager) applyCreate(ctx context.Context, item models.SyncQueueItem, design models.OfflineDesign, deviceID string) error {
	var payload models.DesignPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return fmt.Errorf("%w: decode staged payload: %w", adapter.ErrValidation, err)
	}

	remote, err := m.api.CreateDesign(ctx, models.CreateDesignRequest{
		DeviceID: deviceID,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	return m.designs.MarkDesignSynced(ctx, design.LocalID, remote.ID, remote.Version)
}

// isConflict reports whether the remote rejection freezes the design. An
// update of a remotely deleted design counts: local edits and a remote
// delete diverged, which the user has to settle.
func isConflict(op models.SyncOperation, err error) bool {
	if errors.Is(err, adapter.ErrVersionConflict) {
		return true
	}
	return op == models.OpUpdate && errors.Is(err, adapter.ErrNotFound)
}

// backoff returns the wait before the next attempt: base doubled per prior
// retry, bounded by the configured cap.
func (m *syncManager) backoff(retries int) time.Duration {
	d := m.cfg.BackoffBase
	for i := 0; i < retries; i++ {
		d *= 2
		if d >= m.cfg.BackoffCap {
			return m.cfg.BackoffCap
		}
	}
	if d <= 0 {
		return m.cfg.BackoffCap
	}
	return d
}
