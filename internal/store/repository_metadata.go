package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loomworks/stitchsync/internal/logger"
)

type metadataRepository struct {
	*DB
	logger *logger.Logger
}

// NewMetadataRepository returns the SQLite-backed [MetadataRepository].
func NewMetadataRepository(db *DB, logger *logger.Logger) MetadataRepository {
	return &metadataRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *metadataRepository) GetValue(ctx context.Context, key string) (string, error) {
	log := logger.FromContext(ctx)

	var value string
	err := r.DB.QueryRowContext(ctx, getMetadataValue, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		log.Err(err).
			Str("func", "metadataRepository.GetValue").
			Str("key", key).
			Msg("failed to query metadata value")
		return "", fmt.Errorf("failed to query metadata value (key=%s): %w", key, err)
	}

	return value, nil
}

func (r *metadataRepository) SetValue(ctx context.Context, key string, value string) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, setMetadataValue, key, value); err != nil {
		log.Err(err).
			Str("func", "metadataRepository.SetValue").
			Str("key", key).
			Msg("failed to upsert metadata value")
		return fmt.Errorf("failed to set metadata value (key=%s): %w", key, err)
	}

	return nil
}
