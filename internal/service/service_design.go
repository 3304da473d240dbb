// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/store"
	"github.com/loomworks/stitchsync/models"
)

type designService struct {
	storages *store.Storages
	queue    QueueService
	logger   *logger.Logger
	now      func() time.Time
}

// NewDesignService wires a [DesignService] over the local store. Staged
// remote mutations go through queue.
func NewDesignService(storages *store.Storages, queue QueueService, log *logger.Logger) DesignService {
	return &designService{
		storages: storages,
		queue:    queue,
		logger:   log,
		now:      time.Now,
	}
}

func (s *designService) CreateOfflineDesign(ctx context.Context, payload models.DesignPayload) (models.OfflineDesign, error) {
	if err := validatePayload(payload); err != nil {
		return models.OfflineDesign{}, err
	}

	design := models.OfflineDesign{
		LocalID:           uuid.NewString(),
		SyncStatus:        models.StatusPending,
		LocalVersion:      1,
		LastModifiedLocal: s.now().UTC(),
	}
	design.ApplyPayload(payload)

	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return models.OfflineDesign{}, fmt.Errorf("save new design: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, design, models.OpCreate); err != nil {
		return models.OfflineDesign{}, fmt.Errorf("stage create for design %s: %w", design.LocalID, err)
	}

	s.logger.Debug().
		Str("func", "designService.CreateOfflineDesign").
		Str("design_id", design.LocalID).
		Msg("design created locally")

	return design, nil
}

func (s *designService) UpdateOfflineDesign(ctx context.Context, localID string, patch models.DesignPatch) (models.OfflineDesign, error) {
	design, err := s.GetDesign(ctx, localID)
	if err != nil {
		return models.OfflineDesign{}, err
	}
	if design.SyncStatus == models.StatusConflict {
		return models.OfflineDesign{}, fmt.Errorf("update design %s: %w", localID, ErrConflictActive)
	}

	merged, err := mergePatch(design.Payload(), patch)
	if err != nil {
		return models.OfflineDesign{}, fmt.Errorf("merge patch for design %s: %w", localID, err)
	}
	if err := validatePayload(merged); err != nil {
		return models.OfflineDesign{}, err
	}

	design.ApplyPayload(merged)
	design.LocalVersion++
	design.LastModifiedLocal = s.now().UTC()
	design.SyncStatus = models.StatusPending

	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return models.OfflineDesign{}, fmt.Errorf("save updated design %s: %w", localID, err)
	}
	if _, err := s.queue.Enqueue(ctx, design, models.OpUpdate); err != nil {
		return models.OfflineDesign{}, fmt.Errorf("stage update for design %s: %w", localID, err)
	}

	return design, nil
}

func (s *designService) DeleteOfflineDesign(ctx context.Context, localID string) error {
	design, err := s.storages.Designs.GetDesign(ctx, localID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete design %s: %w", localID, ErrDesignNotFound)
		}
		return fmt.Errorf("load design %s: %w", localID, err)
	}
	if design.SyncStatus == models.StatusConflict {
		return fmt.Errorf("delete design %s: %w", localID, ErrConflictActive)
	}

	// Never reached the server: nothing to tell it, purge everything local.
	if design.ServerID == nil {
		return s.PurgeDesign(ctx, localID)
	}

	design.Deleted = true
	design.SyncStatus = models.StatusPending
	design.LocalVersion++
	design.LastModifiedLocal = s.now().UTC()

	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return fmt.Errorf("save deleted design %s: %w", localID, err)
	}
	if _, err := s.queue.Enqueue(ctx, design, models.OpDelete); err != nil {
		return fmt.Errorf("stage delete for design %s: %w", localID, err)
	}

	return nil
}

func (s *designService) GetDesign(ctx context.Context, localID string) (models.OfflineDesign, error) {
	design, err := s.storages.Designs.GetDesign(ctx, localID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.OfflineDesign{}, fmt.Errorf("get design %s: %w", localID, ErrDesignNotFound)
		}
		return models.OfflineDesign{}, fmt.Errorf("get design %s: %w", localID, err)
	}
	if design.Deleted {
		return models.OfflineDesign{}, fmt.Errorf("get design %s: %w", localID, ErrDesignNotFound)
	}
	return design, nil
}

func (s *designService) GetDesignByServerID(ctx context.Context, serverID string) (models.OfflineDesign, error) {
	design, err := s.storages.Designs.GetDesignByServerID(ctx, serverID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.OfflineDesign{}, fmt.Errorf("get design by server id %s: %w", serverID, ErrDesignNotFound)
		}
		return models.OfflineDesign{}, fmt.Errorf("get design by server id %s: %w", serverID, err)
	}
	return design, nil
}

func (s *designService) ListDesigns(ctx context.Context) ([]models.OfflineDesign, error) {
	all, err := s.storages.Designs.GetAllDesigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}

	designs := make([]models.OfflineDesign, 0, len(all))
	for _, d := range all {
		if !d.Deleted {
			designs = append(designs, d)
		}
	}
	return designs, nil
}

func (s *designService) ListDesignsByFolder(ctx context.Context, folderID string) ([]models.OfflineDesign, error) {
	all, err := s.storages.Designs.GetDesignsByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("list designs in folder %s: %w", folderID, err)
	}

	designs := make([]models.OfflineDesign, 0, len(all))
	for _, d := range all {
		if !d.Deleted {
			designs = append(designs, d)
		}
	}
	return designs, nil
}

func (s *designService) ImportDesignFromServer(ctx context.Context, remote models.ServerDesign) (models.OfflineDesign, error) {
	now := s.now().UTC()

	design, err := s.storages.Designs.GetDesignByServerID(ctx, remote.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return models.OfflineDesign{}, fmt.Errorf("look up design by server id %s: %w", remote.ID, err)
		}
		serverID := remote.ID
		design = models.OfflineDesign{
			LocalID:      uuid.NewString(),
			ServerID:     &serverID,
			LocalVersion: 1,
		}
	}

	design.ApplyPayload(remote.Payload())
	design.ServerVersion = remote.Version
	design.SyncStatus = models.StatusSynced
	design.Deleted = false
	design.LastModifiedLocal = now
	design.LastSyncedAt = &now

	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return models.OfflineDesign{}, fmt.Errorf("save imported design %s: %w", design.LocalID, err)
	}

	return design, nil
}

func (s *designService) MarkDesignSynced(ctx context.Context, localID string, serverID string, serverVersion int64) error {
	design, err := s.storages.Designs.GetDesign(ctx, localID)
	if err != nil {
		return fmt.Errorf("load design %s: %w", localID, err)
	}

	// The server id binds exactly once; later confirmations never rebind it.
	if design.ServerID == nil {
		design.ServerID = &serverID
	}
	design.ServerVersion = serverVersion

	now := s.now().UTC()
	design.LastSyncedAt = &now

	// Edits made while the item was in flight stage further mutations;
	// the design is only fully synced once those are drained too.
	pending, err := s.queue.HasPending(ctx, localID)
	if err != nil {
		return fmt.Errorf("check staged mutations for design %s: %w", localID, err)
	}
	if pending {
		design.SyncStatus = models.StatusPending
	} else {
		design.SyncStatus = models.StatusSynced
	}
	design.LastSyncError = ""

	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return fmt.Errorf("save synced design %s: %w", localID, err)
	}
	return nil
}

func (s *designService) MarkDesignProcessing(ctx context.Context, localID string) error {
	return s.setStatus(ctx, localID, models.StatusProcessing)
}

func (s *designService) MarkDesignPending(ctx context.Context, localID string) error {
	return s.setStatus(ctx, localID, models.StatusPending)
}

func (s *designService) MarkDesignConflict(ctx context.Context, localID string) error {
	return s.setStatus(ctx, localID, models.StatusConflict)
}

func (s *designService) MarkDesignError(ctx context.Context, localID string, reason string) error {
	design, err := s.storages.Designs.GetDesign(ctx, localID)
	if err != nil {
		return fmt.Errorf("load design %s: %w", localID, err)
	}

	design.SyncStatus = models.StatusError
	design.LastSyncError = reason
	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return fmt.Errorf("save design %s status %s: %w", localID, models.StatusError, err)
	}
	return nil
}

func (s *designService) PurgeDesign(ctx context.Context, localID string) error {
	if err := s.queue.ClearForDesign(ctx, localID); err != nil {
		return fmt.Errorf("clear staged mutations for design %s: %w", localID, err)
	}
	if err := s.storages.Designs.DeleteDesign(ctx, localID); err != nil {
		return fmt.Errorf("purge design %s: %w", localID, err)
	}
	return nil
}

func (s *designService) CountByStatus(ctx context.Context) (map[models.SyncStatus]int, error) {
	counts, err := s.storages.Designs.CountDesignsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count designs by status: %w", err)
	}
	return counts, nil
}

func (s *designService) setStatus(ctx context.Context, localID string, status models.SyncStatus) error {
	design, err := s.storages.Designs.GetDesign(ctx, localID)
	if err != nil {
		return fmt.Errorf("load design %s: %w", localID, err)
	}

	design.SyncStatus = status
	design.LastSyncError = ""
	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return fmt.Errorf("save design %s status %s: %w", localID, status, err)
	}
	return nil
}

// mergePatch overlays non-zero patch fields onto base. Pointer fields carry
// explicit false/empty values and are applied separately.
func mergePatch(base models.DesignPayload, patch models.DesignPatch) (models.DesignPayload, error) {
	overlay := models.DesignPayload{
		Name:       patch.Name,
		Width:      patch.Width,
		Height:     patch.Height,
		MeshCount:  patch.MeshCount,
		GridData:   patch.GridData,
		PreviewRef: patch.PreviewRef,
	}
	if err := mergo.Merge(&base, overlay, mergo.WithOverride); err != nil {
		return models.DesignPayload{}, err
	}

	if patch.IsDraft != nil {
		base.IsDraft = *patch.IsDraft
	}
	if patch.FolderID != nil {
		base.FolderID = patch.FolderID
	}

	return base, nil
}

func validatePayload(p models.DesignPayload) error {
	if p.Name == "" {
		return ErrValidationEmptyName
	}
	if p.Width <= 0 || p.Height <= 0 {
		return ErrValidationBadDimensions
	}
	if p.MeshCount <= 0 {
		return ErrValidationBadMeshCount
	}
	return nil
}
