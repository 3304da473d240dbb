// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/loomworks/stitchsync/internal/adapter"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/store"
	"github.com/loomworks/stitchsync/models"
)

type conflictService struct {
	storages *store.Storages
	api      adapter.RemoteDesignAPI
	designs  DesignService
	queue    QueueService
	logger   *logger.Logger
}

// NewConflictService wires a [ConflictService] over the store and the
// remote API.
func NewConflictService(
	storages *store.Storages,
	api adapter.RemoteDesignAPI,
	designs DesignService,
	queue QueueService,
	log *logger.Logger,
) ConflictService {
	return &conflictService{
		storages: storages,
		api:      api,
		designs:  designs,
		queue:    queue,
		logger:   log,
	}
}

func (s *conflictService) Conflicts(ctx context.Context) ([]models.OfflineDesign, error) {
	designs, err := s.storages.Designs.GetDesignsByStatus(ctx, models.StatusConflict)
	if err != nil {
		return nil, fmt.Errorf("list conflicted designs: %w", err)
	}
	return designs, nil
}

func (s *conflictService) ResolveKeepLocal(ctx context.Context, localID string) (models.OfflineDesign, error) {
	design, err := s.conflictedDesign(ctx, localID)
	if err != nil {
		return models.OfflineDesign{}, err
	}

	remote, err := s.api.UpdateDesign(ctx, *design.ServerID, models.UpdateDesignRequest{
		Version: design.ServerVersion,
		Force:   true,
		Payload: design.Payload(),
	})
	if err != nil {
		// The design was deleted remotely; keeping local means publishing
		// it again as a fresh server record.
		if errors.Is(err, adapter.ErrNotFound) {
			return s.republish(ctx, design)
		}
		return models.OfflineDesign{}, fmt.Errorf("force update design %s: %w", localID, err)
	}

	if err := s.queue.ClearForDesign(ctx, localID); err != nil {
		return models.OfflineDesign{}, err
	}
	if err := s.designs.MarkDesignSynced(ctx, localID, remote.ID, remote.Version); err != nil {
		return models.OfflineDesign{}, err
	}

	return s.designs.GetDesign(ctx, localID)
}

func (s *conflictService) ResolveKeepServer(ctx context.Context, localID string) (models.OfflineDesign, error) {
	design, err := s.conflictedDesign(ctx, localID)
	if err != nil {
		return models.OfflineDesign{}, err
	}

	remote, err := s.api.GetDesign(ctx, *design.ServerID)
	if err != nil {
		// Deleted remotely: the server copy wins by disappearing.
		if errors.Is(err, adapter.ErrNotFound) {
			if purgeErr := s.designs.PurgeDesign(ctx, localID); purgeErr != nil {
				return models.OfflineDesign{}, purgeErr
			}
			return models.OfflineDesign{}, nil
		}
		return models.OfflineDesign{}, fmt.Errorf("fetch server copy for design %s: %w", localID, err)
	}

	if err := s.queue.ClearForDesign(ctx, localID); err != nil {
		return models.OfflineDesign{}, err
	}
	return s.designs.ImportDesignFromServer(ctx, remote)
}

func (s *conflictService) ResolveKeepBoth(ctx context.Context, localID string) (models.OfflineDesign, models.OfflineDesign, error) {
	design, err := s.conflictedDesign(ctx, localID)
	if err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, err
	}

	// The durable marker goes down before the remote create so a crash
	// between the two cannot orphan the new server copy.
	design.PromotionState = models.PromotionPending
	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, fmt.Errorf("mark promotion for design %s: %w", localID, err)
	}

	deviceID, err := s.storages.Metadata.GetValue(ctx, models.MetaKeyDeviceID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.OfflineDesign{}, models.OfflineDesign{}, fmt.Errorf("read device id: %w", err)
	}

	payload := design.Payload()
	payload.Name += " (copy)"

	remote, err := s.api.CreateDesign(ctx, models.CreateDesignRequest{DeviceID: deviceID, Payload: payload})
	if err != nil {
		// Nothing made it to the server, roll the marker back.
		design.PromotionState = ""
		if saveErr := s.storages.Designs.SaveDesign(ctx, design); saveErr != nil {
			s.logger.Err(saveErr).
				Str("func", "conflictService.ResolveKeepBoth").
				Str("design_id", localID).
				Msg("failed to roll back promotion marker")
		}
		return models.OfflineDesign{}, models.OfflineDesign{}, fmt.Errorf("publish local copy of design %s: %w", localID, err)
	}

	design.PromotionServerID = &remote.ID
	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, fmt.Errorf("record promoted copy for design %s: %w", localID, err)
	}

	return s.finishPromotion(ctx, design)
}

func (s *conflictService) ResumePromotions(ctx context.Context) error {
	stuck, err := s.storages.Designs.GetPendingPromotions(ctx)
	if err != nil {
		return fmt.Errorf("list interrupted promotions: %w", err)
	}

	for _, design := range stuck {
		if design.PromotionServerID == nil {
			// Crashed before the remote create was confirmed: nothing to
			// finish, the design simply returns to plain conflict state.
			design.PromotionState = ""
			if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
				return fmt.Errorf("clear stale promotion marker for design %s: %w", design.LocalID, err)
			}
			continue
		}

		if _, _, err := s.finishPromotion(ctx, design); err != nil {
			// Likely offline; the marker survives for the next startup.
			s.logger.Warn().Err(err).
				Str("func", "conflictService.ResumePromotions").
				Str("design_id", design.LocalID).
				Msg("could not finish interrupted promotion")
		}
	}
	return nil
}

// finishPromotion completes a "keep both" resolution whose remote create
// already succeeded: it materialises the promoted copy locally, re-points
// the original at the current server state, and clears the marker.
func (s *conflictService) finishPromotion(ctx context.Context, design models.OfflineDesign) (models.OfflineDesign, models.OfflineDesign, error) {
	promoted, err := s.api.GetDesign(ctx, *design.PromotionServerID)
	if err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, fmt.Errorf("fetch promoted copy %s: %w", *design.PromotionServerID, err)
	}
	duplicate, err := s.designs.ImportDesignFromServer(ctx, promoted)
	if err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, err
	}

	if err := s.queue.ClearForDesign(ctx, design.LocalID); err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, err
	}

	remote, err := s.api.GetDesign(ctx, *design.ServerID)
	if err != nil {
		if !errors.Is(err, adapter.ErrNotFound) {
			return models.OfflineDesign{}, models.OfflineDesign{}, fmt.Errorf("fetch server copy for design %s: %w", design.LocalID, err)
		}
		// The contested server copy is gone; the promoted copy already
		// preserves the local work, so the original record goes with it.
		if purgeErr := s.designs.PurgeDesign(ctx, design.LocalID); purgeErr != nil {
			return models.OfflineDesign{}, models.OfflineDesign{}, purgeErr
		}
		return models.OfflineDesign{}, duplicate, nil
	}

	original, err := s.designs.ImportDesignFromServer(ctx, remote)
	if err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, err
	}

	original.PromotionState = ""
	original.PromotionServerID = nil
	if err := s.storages.Designs.SaveDesign(ctx, original); err != nil {
		return models.OfflineDesign{}, models.OfflineDesign{}, fmt.Errorf("clear promotion marker for design %s: %w", original.LocalID, err)
	}

	s.logger.Info().
		Str("func", "conflictService.finishPromotion").
		Str("design_id", original.LocalID).
		Str("duplicate_id", duplicate.LocalID).
		Msg("both copies kept")

	return original, duplicate, nil
}

// conflictedDesign loads the design and checks it is actually frozen.
func (s *conflictService) conflictedDesign(ctx context.Context, localID string) (models.OfflineDesign, error) {
	design, err := s.storages.Designs.GetDesign(ctx, localID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.OfflineDesign{}, fmt.Errorf("resolve design %s: %w", localID, ErrDesignNotFound)
		}
		return models.OfflineDesign{}, fmt.Errorf("load design %s: %w", localID, err)
	}
	if design.SyncStatus != models.StatusConflict {
		return models.OfflineDesign{}, fmt.Errorf("resolve design %s: %w", localID, ErrNoConflict)
	}
	if design.ServerID == nil {
		return models.OfflineDesign{}, fmt.Errorf("resolve design %s: no server copy to reconcile against: %w", localID, ErrNoConflict)
	}
	return design, nil
}

// republish recreates a remotely deleted design as a fresh server record
// during a "keep local" resolution.
func (s *conflictService) republish(ctx context.Context, design models.OfflineDesign) (models.OfflineDesign, error) {
	deviceID, err := s.storages.Metadata.GetValue(ctx, models.MetaKeyDeviceID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.OfflineDesign{}, fmt.Errorf("read device id: %w", err)
	}

	remote, err := s.api.CreateDesign(ctx, models.CreateDesignRequest{DeviceID: deviceID, Payload: design.Payload()})
	if err != nil {
		return models.OfflineDesign{}, fmt.Errorf("republish design %s: %w", design.LocalID, err)
	}

	if err := s.queue.ClearForDesign(ctx, design.LocalID); err != nil {
		return models.OfflineDesign{}, err
	}

	// The old binding points at a deleted record, so this is the one case
	// where the server id is re-bound.
	serverID := remote.ID
	design.ServerID = &serverID
	design.ServerVersion = remote.Version
	design.SyncStatus = models.StatusSynced
	if err := s.storages.Designs.SaveDesign(ctx, design); err != nil {
		return models.OfflineDesign{}, fmt.Errorf("save republished design %s: %w", design.LocalID, err)
	}

	return design, nil
}
