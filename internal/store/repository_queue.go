package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/models"
)

var queueColumns = []string{
	"id", "design_id", "operation", "payload", "status",
	"retry_count", "last_error", "created_at",
}

type queueRepository struct {
	*DB
	logger *logger.Logger
}

// NewQueueRepository returns the SQLite-backed [QueueRepository].
func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *queueRepository) InsertItem(ctx context.Context, item models.SyncQueueItem) (models.SyncQueueItem, error) {
	log := logger.FromContext(ctx)

	res, err := r.DB.ExecContext(ctx, insertQueueItem,
		item.DesignID,
		string(item.Operation),
		[]byte(item.Payload),
		string(item.Status),
		item.RetryCount,
		item.LastError,
		item.CreatedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.InsertItem").
			Str("design_id", item.DesignID).
			Str("operation", string(item.Operation)).
			Msg("failed to execute insert for queue item")
		return models.SyncQueueItem{}, fmt.Errorf("failed to insert queue item (design_id=%s): %w", item.DesignID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("failed to get inserted queue item id: %w", err)
	}
	item.ID = id

	return item, nil
}

func (r *queueRepository) GetItem(ctx context.Context, id int64) (models.SyncQueueItem, error) {
	return r.getOne(ctx, "queueRepository.GetItem",
		sq.Select(queueColumns...).From("sync_queue").Where(sq.Eq{"id": id}))
}

func (r *queueRepository) GetItemsByDesign(ctx context.Context, designID string) ([]models.SyncQueueItem, error) {
	return r.scanMany(ctx, "queueRepository.GetItemsByDesign",
		sq.Select(queueColumns...).From("sync_queue").
			Where(sq.Eq{"design_id": designID}).
			OrderBy("created_at, id"))
}

func (r *queueRepository) GetPendingItemForDesign(ctx context.Context, designID string, op models.SyncOperation) (models.SyncQueueItem, error) {
	return r.getOne(ctx, "queueRepository.GetPendingItemForDesign",
		sq.Select(queueColumns...).From("sync_queue").
			Where(sq.Eq{
				"design_id": designID,
				"operation": string(op),
				"status":    string(models.ItemPending),
			}).
			OrderBy("created_at, id").
			Limit(1))
}

func (r *queueRepository) NextPendingItem(ctx context.Context) (models.SyncQueueItem, error) {
	return r.getOne(ctx, "queueRepository.NextPendingItem",
		sq.Select(queueColumns...).From("sync_queue").
			Where(sq.Eq{"status": string(models.ItemPending)}).
			OrderBy("created_at, id").
			Limit(1))
}

func (r *queueRepository) ReplacePayload(ctx context.Context, id int64, payload []byte) error {
	return r.exec(ctx, "queueRepository.ReplacePayload", id, replaceQueuePayload, payload, id)
}

func (r *queueRepository) SetItemStatus(ctx context.Context, id int64, status models.QueueItemStatus) error {
	return r.exec(ctx, "queueRepository.SetItemStatus", id, setQueueItemStatus, string(status), id)
}

func (r *queueRepository) MarkItemFailure(ctx context.Context, id int64, lastError string, status models.QueueItemStatus) error {
	return r.exec(ctx, "queueRepository.MarkItemFailure", id, markQueueItemFailure, lastError, string(status), id)
}

func (r *queueRepository) ResetItem(ctx context.Context, id int64) error {
	return r.exec(ctx, "queueRepository.ResetItem", id, resetQueueItem, id)
}

func (r *queueRepository) DeleteItem(ctx context.Context, id int64) error {
	return r.exec(ctx, "queueRepository.DeleteItem", id, deleteQueueItem, id)
}

func (r *queueRepository) DeleteItemsByDesign(ctx context.Context, designID string) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteQueueItemsByDesign, designID); err != nil {
		log.Err(err).
			Str("func", "queueRepository.DeleteItemsByDesign").
			Str("design_id", designID).
			Msg("failed to execute delete for design queue items")
		return fmt.Errorf("failed to delete queue items (design_id=%s): %w", designID, err)
	}

	return nil
}

func (r *queueRepository) GetItemsByStatus(ctx context.Context, status models.QueueItemStatus) ([]models.SyncQueueItem, error) {
	return r.scanMany(ctx, "queueRepository.GetItemsByStatus",
		sq.Select(queueColumns...).From("sync_queue").
			Where(sq.Eq{"status": string(status)}).
			OrderBy("created_at, id"))
}

func (r *queueRepository) GetQueueStats(ctx context.Context) (models.QueueStats, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("status", "COUNT(*)").
		From("sync_queue").
		GroupBy("status").
		ToSql()
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("failed to build queue stats query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.GetQueueStats").
			Msg("failed to execute queue stats query")
		return models.QueueStats{}, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	var stats models.QueueStats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			log.Err(err).
				Str("func", "queueRepository.GetQueueStats").
				Msg("failed to scan queue stats row")
			return models.QueueStats{}, fmt.Errorf("failed to scan queue stats row: %w", err)
		}
		switch models.QueueItemStatus(status) {
		case models.ItemPending:
			stats.Pending = n
		case models.ItemProcessing:
			stats.Processing = n
		case models.ItemFailed:
			stats.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return models.QueueStats{}, fmt.Errorf("error iterating queue stats rows: %w", err)
	}

	return stats, nil
}

func (r *queueRepository) exec(ctx context.Context, fn string, id int64, query string, args ...any) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", fn).
			Int64("id", id).
			Msg("failed to execute queue item statement")
		return fmt.Errorf("failed to update queue item (id=%d): %w", id, err)
	}

	return nil
}

func (r *queueRepository) getOne(ctx context.Context, fn string, builder sq.SelectBuilder) (models.SyncQueueItem, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.ToSql()
	if err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("failed to build queue query: %w", err)
	}

	row := r.DB.QueryRowContext(ctx, query, args...)
	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SyncQueueItem{}, ErrNotFound
		}
		log.Err(err).Str("func", fn).Msg("failed to scan queue item row")
		return models.SyncQueueItem{}, fmt.Errorf("failed to scan queue item row: %w", err)
	}

	return item, nil
}

func (r *queueRepository) scanMany(ctx context.Context, fn string, builder sq.SelectBuilder) ([]models.SyncQueueItem, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build queue query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to execute queue query")
		return nil, fmt.Errorf("failed to query queue items: %w", err)
	}
	defer rows.Close()

	var items []models.SyncQueueItem
	for rows.Next() {
		item, scanErr := scanQueueItem(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", fn).Msg("failed to scan queue item row")
			return nil, fmt.Errorf("failed to scan queue item row: %w", scanErr)
		}
		items = append(items, item)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", fn).Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating queue item rows: %w", rowsErr)
	}

	return items, nil
}

func scanQueueItem(row rowScanner) (models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	var operation, status string
	var payload []byte

	err := row.Scan(
		&item.ID,
		&item.DesignID,
		&operation,
		&payload,
		&status,
		&item.RetryCount,
		&item.LastError,
		&item.CreatedAt,
	)
	if err != nil {
		return models.SyncQueueItem{}, err
	}

	item.Operation = models.SyncOperation(operation)
	item.Status = models.QueueItemStatus(status)
	item.Payload = payload

	return item, nil
}
