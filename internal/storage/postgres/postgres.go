// Package postgres implements the storage.Backend interface on a Postgres
// server through the shared GORM backend.
package postgres

import (
	"github.com/waterrocket/simulator/internal/database"
	"github.com/waterrocket/simulator/internal/logging"
	gormstorage "github.com/waterrocket/simulator/internal/storage/gorm"

	"gorm.io/gorm"
)

// Backend is the GORM backend connected to Postgres on Init.
type Backend struct {
	*gormstorage.Backend
	cfg database.PostgresConfig
}

// New creates a Postgres storage backend. No connection is made until Init.
func New(cfg database.PostgresConfig, logManager *logging.SlogManager) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Connect: func() (*gorm.DB, error) {
				return database.OpenPostgres(cfg)
			},
			LogManager: logManager,
		}),
		cfg: cfg,
	}
}

// Config returns the connection settings the backend was created with.
func (b *Backend) Config() database.PostgresConfig {
	return b.cfg
}
