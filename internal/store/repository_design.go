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

var designColumns = []string{
	"local_id", "server_id", "name", "width", "height", "mesh_count",
	"grid_data", "folder_id", "is_draft", "preview_ref", "sync_status",
	"local_version", "server_version", "deleted", "last_modified_local",
	"last_synced_at", "last_sync_error", "promotion_state",
	"promotion_server_id",
}

type designRepository struct {
	*DB
	logger *logger.Logger
}

// NewDesignRepository returns the SQLite-backed [DesignRepository].
func NewDesignRepository(db *DB, logger *logger.Logger) DesignRepository {
	return &designRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *designRepository) SaveDesign(ctx context.Context, d models.OfflineDesign) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, upsertDesign,
		d.LocalID,
		d.ServerID,
		d.Name,
		d.Width,
		d.Height,
		d.MeshCount,
		d.GridData,
		d.FolderID,
		d.IsDraft,
		d.PreviewRef,
		string(d.SyncStatus),
		d.LocalVersion,
		d.ServerVersion,
		d.Deleted,
		d.LastModifiedLocal,
		d.LastSyncedAt,
		d.LastSyncError,
		d.PromotionState,
		d.PromotionServerID,
	)
	if err != nil {
		log.Err(err).
			Str("func", "designRepository.SaveDesign").
			Str("local_id", d.LocalID).
			Msg("failed to execute upsert for design")
		return fmt.Errorf("failed to save design (local_id=%s): %w", d.LocalID, err)
	}

	return nil
}

func (r *designRepository) GetDesign(ctx context.Context, localID string) (models.OfflineDesign, error) {
	return r.getOne(ctx, "designRepository.GetDesign", sq.Eq{"local_id": localID})
}

func (r *designRepository) GetDesignByServerID(ctx context.Context, serverID string) (models.OfflineDesign, error) {
	return r.getOne(ctx, "designRepository.GetDesignByServerID", sq.Eq{"server_id": serverID})
}

func (r *designRepository) GetAllDesigns(ctx context.Context) ([]models.OfflineDesign, error) {
	return r.scanMany(ctx, "designRepository.GetAllDesigns",
		sq.Select(designColumns...).From("designs").OrderBy("last_modified_local DESC, local_id"))
}

func (r *designRepository) GetDesignsByStatus(ctx context.Context, status models.SyncStatus) ([]models.OfflineDesign, error) {
	return r.scanMany(ctx, "designRepository.GetDesignsByStatus",
		sq.Select(designColumns...).From("designs").
			Where(sq.Eq{"sync_status": string(status)}).
			OrderBy("last_modified_local, local_id"))
}

func (r *designRepository) GetDesignsByFolder(ctx context.Context, folderID string) ([]models.OfflineDesign, error) {
	return r.scanMany(ctx, "designRepository.GetDesignsByFolder",
		sq.Select(designColumns...).From("designs").
			Where(sq.Eq{"folder_id": folderID}).
			OrderBy("last_modified_local DESC, local_id"))
}

func (r *designRepository) GetPendingPromotions(ctx context.Context) ([]models.OfflineDesign, error) {
	return r.scanMany(ctx, "designRepository.GetPendingPromotions",
		sq.Select(designColumns...).From("designs").
			Where(sq.Eq{"promotion_state": models.PromotionPending}).
			OrderBy("last_modified_local, local_id"))
}

func (r *designRepository) CountDesignsByStatus(ctx context.Context) (map[models.SyncStatus]int, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("sync_status", "COUNT(*)").
		From("designs").
		GroupBy("sync_status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build status count query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "designRepository.CountDesignsByStatus").
			Msg("failed to execute status count query")
		return nil, fmt.Errorf("failed to query design status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SyncStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			log.Err(err).
				Str("func", "designRepository.CountDesignsByStatus").
				Msg("failed to scan status count row")
			return nil, fmt.Errorf("failed to scan design status count row: %w", err)
		}
		counts[models.SyncStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating design status count rows: %w", err)
	}

	return counts, nil
}

func (r *designRepository) DeleteDesign(ctx context.Context, localID string) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteDesign, localID); err != nil {
		log.Err(err).
			Str("func", "designRepository.DeleteDesign").
			Str("local_id", localID).
			Msg("failed to execute delete for design")
		return fmt.Errorf("failed to delete design (local_id=%s): %w", localID, err)
	}

	return nil
}

func (r *designRepository) getOne(ctx context.Context, fn string, pred sq.Eq) (models.OfflineDesign, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select(designColumns...).From("designs").Where(pred).ToSql()
	if err != nil {
		return models.OfflineDesign{}, fmt.Errorf("failed to build design query: %w", err)
	}

	row := r.DB.QueryRowContext(ctx, query, args...)
	d, err := scanDesign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OfflineDesign{}, ErrNotFound
		}
		log.Err(err).Str("func", fn).Msg("failed to scan design row")
		return models.OfflineDesign{}, fmt.Errorf("failed to scan design row: %w", err)
	}

	return d, nil
}

func (r *designRepository) scanMany(ctx context.Context, fn string, builder sq.SelectBuilder) ([]models.OfflineDesign, error) {
	log := logger.FromContext(ctx)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build design query: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to execute design query")
		return nil, fmt.Errorf("failed to query designs: %w", err)
	}
	defer rows.Close()

	var items []models.OfflineDesign
	for rows.Next() {
		d, scanErr := scanDesign(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", fn).Msg("failed to scan design row")
			return nil, fmt.Errorf("failed to scan design row: %w", scanErr)
		}
		items = append(items, d)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", fn).Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating design rows: %w", rowsErr)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDesign(row rowScanner) (models.OfflineDesign, error) {
	var d models.OfflineDesign
	var serverID, folderID, promotionServerID sql.NullString
	var lastSyncedAt sql.NullTime
	var status string

	err := row.Scan(
		&d.LocalID,
		&serverID,
		&d.Name,
		&d.Width,
		&d.Height,
		&d.MeshCount,
		&d.GridData,
		&folderID,
		&d.IsDraft,
		&d.PreviewRef,
		&status,
		&d.LocalVersion,
		&d.ServerVersion,
		&d.Deleted,
		&d.LastModifiedLocal,
		&lastSyncedAt,
		&d.LastSyncError,
		&d.PromotionState,
		&promotionServerID,
	)
	if err != nil {
		return models.OfflineDesign{}, err
	}

	d.SyncStatus = models.SyncStatus(status)
	if serverID.Valid {
		d.ServerID = &serverID.String
	}
	if folderID.Valid {
		d.FolderID = &folderID.String
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		d.LastSyncedAt = &t
	}
	if promotionServerID.Valid {
		d.PromotionServerID = &promotionServerID.String
	}

	return d, nil
}
