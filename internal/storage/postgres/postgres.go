// Package postgres connects the GORM storage backend to PostgreSQL, falling
// back to a local SQLite file when the server is unreachable.
package postgres

import (
	"fmt"

	"github.com/OCAP2/spacecombat/internal/database"
	gormstorage "github.com/OCAP2/spacecombat/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend with a managed Postgres connection.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
}

// New connects to Postgres using the db.* config keys. When deps.DB is already
// set, that connection is used as is.
func New(deps gormstorage.Dependencies, log zerolog.Logger, fallbackPath string) (*Backend, error) {
	manager := database.NewManager(log, fallbackPath)

	if deps.DB == nil {
		if err := manager.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		deps.DB = manager.DB
	} else {
		manager.DB = deps.DB
		manager.IsValid = true
	}

	return &Backend{
		Backend: gormstorage.New(deps),
		manager: manager,
	}, nil
}

// Local reports whether records go to the SQLite fallback file.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}

// Close flushes the writer and closes the connection pool.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.manager.Close()
}
