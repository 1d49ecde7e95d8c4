// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/waterrocket/simulator/internal/config"
	"github.com/waterrocket/simulator/internal/database"
	"github.com/waterrocket/simulator/internal/logging"
	"github.com/waterrocket/simulator/internal/storage/memory"
	"github.com/waterrocket/simulator/internal/storage/postgres"
	sqlitestorage "github.com/waterrocket/simulator/internal/storage/sqlite"
)

// Dependencies are shared by every backend the factory can build.
type Dependencies struct {
	LogManager *logging.SlogManager
	Postgres   database.PostgresConfig
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(deps.Postgres, deps.LogManager), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.SQLite.Path,
			DumpInterval: cfg.SQLite.DumpInterval,
			Restore:      cfg.SQLite.Restore,
		}, deps.LogManager)
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
