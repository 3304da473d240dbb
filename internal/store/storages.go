package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/models"
)

// Storages groups the three local namespaces the sync engine persists:
// design records, queue items, and the metadata singleton.
type Storages struct {
	Designs  DesignRepository
	Queue    QueueRepository
	Metadata MetadataRepository

	// Persistent is false when the SQLite engine could not be opened and
	// the non-durable in-memory fallback is in use.
	Persistent bool
}

// NewStorages initialises the local storage layer:
//  1. Opens an SQLite connection to cfg.DB.DSN, creating the file if absent.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Ensures the metadata singleton carries a stable device id.
//
// When the engine cannot be opened or migrated, it logs a warning and
// returns in-memory repositories instead of failing: edits keep working for
// the session, they just will not survive a restart.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	log.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, log)
	if err == nil {
		if migrateErr := db.Migrate(); migrateErr != nil {
			err = fmt.Errorf("%w: %w", ErrStorageUnavailable, migrateErr)
		}
	}
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			return nil, err
		}
		log.Warn().Err(err).Msg("local storage unavailable, falling back to in-memory store")
		s := NewMemoryStorages()
		if initErr := s.ensureDeviceID(ctx); initErr != nil {
			return nil, initErr
		}
		return s, nil
	}

	s := &Storages{
		Designs:    NewDesignRepository(db, log),
		Queue:      NewQueueRepository(db, log),
		Metadata:   NewMetadataRepository(db, log),
		Persistent: true,
	}
	if err := s.ensureDeviceID(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// NewMemoryStorages builds the non-persistent storage set. Used as the
// degraded fallback and by tests.
func NewMemoryStorages() *Storages {
	return &Storages{
		Designs:  NewMemoryDesignRepository(),
		Queue:    NewMemoryQueueRepository(),
		Metadata: NewMemoryMetadataRepository(),
	}
}

// ensureDeviceID creates the stable device identifier on first open.
func (s *Storages) ensureDeviceID(ctx context.Context) error {
	_, err := s.Metadata.GetValue(ctx, models.MetaKeyDeviceID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("read device id: %w", err)
	}

	if err := s.Metadata.SetValue(ctx, models.MetaKeyDeviceID, uuid.NewString()); err != nil {
		return fmt.Errorf("initialise device id: %w", err)
	}
	return nil
}
