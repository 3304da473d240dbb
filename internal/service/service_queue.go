// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/store"
	"github.com/loomworks/stitchsync/models"
)

type queueService struct {
	storages   *store.Storages
	maxRetries int
	logger     *logger.Logger
	now        func() time.Time
}

// NewQueueService wires a [QueueService] over the local store. cfg supplies
// the retry budget.
func NewQueueService(storages *store.Storages, cfg config.Sync, log *logger.Logger) QueueService {
	return &queueService{
		storages:   storages,
		maxRetries: cfg.MaxRetries,
		logger:     log,
		now:        time.Now,
	}
}

func (s *queueService) Enqueue(ctx context.Context, design models.OfflineDesign, op models.SyncOperation) (models.SyncQueueItem, error) {
	payload, err := json.Marshal(design.Payload())
	if err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("marshal payload for design %s: %w", design.LocalID, err)
	}

	switch op {
	case models.OpUpdate:
		// An unsent create or update already carries this design; fold the
		// newer snapshot into it instead of growing the queue.
		for _, coalesceOp := range []models.SyncOperation{models.OpCreate, models.OpUpdate} {
			existing, err := s.storages.Queue.GetPendingItemForDesign(ctx, design.LocalID, coalesceOp)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return models.SyncQueueItem{}, fmt.Errorf("look up staged %s for design %s: %w", coalesceOp, design.LocalID, err)
			}
			if err := s.storages.Queue.ReplacePayload(ctx, existing.ID, payload); err != nil {
				return models.SyncQueueItem{}, fmt.Errorf("coalesce update into item %d: %w", existing.ID, err)
			}
			existing.Payload = payload

			s.logger.Debug().
				Str("func", "queueService.Enqueue").
				Str("design_id", design.LocalID).
				Int64("item_id", existing.ID).
				Msg("update coalesced into staged item")

			return existing, nil
		}

	case models.OpDelete:
		// A delete supersedes everything staged before it.
		if err := s.dropPendingMutations(ctx, design.LocalID); err != nil {
			return models.SyncQueueItem{}, err
		}
	}

	item := models.SyncQueueItem{
		DesignID:  design.LocalID,
		Operation: op,
		Payload:   payload,
		Status:    models.ItemPending,
		CreatedAt: s.now().UTC(),
	}

	inserted, err := s.storages.Queue.InsertItem(ctx, item)
	if err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("stage %s for design %s: %w", op, design.LocalID, err)
	}
	return inserted, nil
}

func (s *queueService) NextPending(ctx context.Context) (models.SyncQueueItem, bool, error) {
	item, err := s.storages.Queue.NextPendingItem(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.SyncQueueItem{}, false, nil
		}
		return models.SyncQueueItem{}, false, fmt.Errorf("fetch next staged mutation: %w", err)
	}
	return item, true, nil
}

func (s *queueService) MarkProcessing(ctx context.Context, id int64) error {
	if err := s.storages.Queue.SetItemStatus(ctx, id, models.ItemProcessing); err != nil {
		return fmt.Errorf("mark item %d processing: %w", id, err)
	}
	return nil
}

func (s *queueService) Complete(ctx context.Context, id int64) error {
	if err := s.storages.Queue.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("complete item %d: %w", id, err)
	}
	return nil
}

func (s *queueService) Fail(ctx context.Context, item models.SyncQueueItem, cause error) (bool, error) {
	retries := item.RetryCount + 1
	exhausted := retries >= s.maxRetries

	status := models.ItemPending
	if exhausted {
		status = models.ItemFailed
	}

	if err := s.storages.Queue.MarkItemFailure(ctx, item.ID, cause.Error(), status); err != nil {
		return false, fmt.Errorf("record failure for item %d: %w", item.ID, err)
	}

	s.logger.Warn().
		Str("func", "queueService.Fail").
		Str("design_id", item.DesignID).
		Int64("item_id", item.ID).
		Int("retries", retries).
		Bool("exhausted", exhausted).
		Err(cause).
		Msg("staged mutation attempt failed")

	return exhausted, nil
}

func (s *queueService) FailPermanently(ctx context.Context, item models.SyncQueueItem, cause error) error {
	if err := s.storages.Queue.MarkItemFailure(ctx, item.ID, cause.Error(), models.ItemFailed); err != nil {
		return fmt.Errorf("record permanent failure for item %d: %w", item.ID, err)
	}

	s.logger.Warn().
		Str("func", "queueService.FailPermanently").
		Str("design_id", item.DesignID).
		Int64("item_id", item.ID).
		Err(cause).
		Msg("staged mutation rejected, retries will not help")

	return nil
}

func (s *queueService) HasPending(ctx context.Context, designID string) (bool, error) {
	items, err := s.storages.Queue.GetItemsByDesign(ctx, designID)
	if err != nil {
		return false, fmt.Errorf("list staged mutations for design %s: %w", designID, err)
	}
	for _, it := range items {
		if it.Status == models.ItemPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *queueService) ResetFailedForDesign(ctx context.Context, designID string) (int, error) {
	items, err := s.storages.Queue.GetItemsByDesign(ctx, designID)
	if err != nil {
		return 0, fmt.Errorf("list staged mutations for design %s: %w", designID, err)
	}

	reset := 0
	for _, it := range items {
		if it.Status != models.ItemFailed {
			continue
		}
		if err := s.storages.Queue.ResetItem(ctx, it.ID); err != nil {
			return reset, fmt.Errorf("reset failed item %d: %w", it.ID, err)
		}
		reset++
	}
	return reset, nil
}

func (s *queueService) RecoverInFlight(ctx context.Context) error {
	stuck, err := s.storages.Queue.GetItemsByStatus(ctx, models.ItemProcessing)
	if err != nil {
		return fmt.Errorf("list in-flight items: %w", err)
	}

	for _, it := range stuck {
		if err := s.storages.Queue.SetItemStatus(ctx, it.ID, models.ItemPending); err != nil {
			return fmt.Errorf("recover in-flight item %d: %w", it.ID, err)
		}
	}

	if len(stuck) > 0 {
		s.logger.Info().
			Str("func", "queueService.RecoverInFlight").
			Int("count", len(stuck)).
			Msg("recovered items left in flight by a previous run")
	}
	return nil
}

func (s *queueService) ClearForDesign(ctx context.Context, designID string) error {
	if err := s.storages.Queue.DeleteItemsByDesign(ctx, designID); err != nil {
		return fmt.Errorf("clear staged mutations for design %s: %w", designID, err)
	}
	return nil
}

func (s *queueService) FailedItems(ctx context.Context) ([]models.SyncQueueItem, error) {
	items, err := s.storages.Queue.GetItemsByStatus(ctx, models.ItemFailed)
	if err != nil {
		return nil, fmt.Errorf("list failed items: %w", err)
	}
	return items, nil
}

func (s *queueService) Stats(ctx context.Context) (models.QueueStats, error) {
	stats, err := s.storages.Queue.GetQueueStats(ctx)
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("collect queue stats: %w", err)
	}
	return stats, nil
}

// dropPendingMutations removes unsent creates and updates for a design that
// is about to stage a delete. In-flight items are left alone.
func (s *queueService) dropPendingMutations(ctx context.Context, designID string) error {
	items, err := s.storages.Queue.GetItemsByDesign(ctx, designID)
	if err != nil {
		return fmt.Errorf("list staged mutations for design %s: %w", designID, err)
	}

	for _, it := range items {
		if it.Operation == models.OpDelete || it.Status == models.ItemProcessing {
			continue
		}
		if err := s.storages.Queue.DeleteItem(ctx, it.ID); err != nil {
			return fmt.Errorf("drop superseded item %d: %w", it.ID, err)
		}
	}
	return nil
}
