package store

import (
	"database/sql"

	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/migrations"
)

// DB wraps the sql connection handed to the repositories.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// Migrate applies pending schema migrations. Called once on open; creating
// namespaces and indices is idempotent.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}
