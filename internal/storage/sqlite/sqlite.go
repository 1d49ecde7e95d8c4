// Package sqlitestorage keeps recorded runs in an in-memory SQLite database
// and snapshots it to a file with VACUUM INTO.
//
// Snapshots are written on an interval and on Close, but only when a run was
// saved since the previous one. With Restore set, the runs of an earlier
// snapshot are loaded back on Init so run IDs keep counting across restarts.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waterrocket/simulator/internal/database"
	"github.com/waterrocket/simulator/internal/logging"
	"github.com/waterrocket/simulator/internal/model"
	gormstorage "github.com/waterrocket/simulator/internal/storage/gorm"
	"github.com/waterrocket/simulator/pkg/core"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DSN          string // empty selects the shared in-memory database
	DumpInterval time.Duration
	DumpPath     string // snapshot file, empty disables snapshots
	Restore      bool
}

// Backend is the gorm backend over an in-memory SQLite database.
type Backend struct {
	*gormstorage.Backend
	db    *gorm.DB
	cfg   Config
	logs  *logging.SlogManager
	dirty atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New opens the in-memory database. Call Init before use.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	db, err := database.OpenSQLite(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
		db:   db,
		cfg:  cfg,
		logs: logManager,
		stop: make(chan struct{}),
	}, nil
}

// Init migrates the schema, restores the last snapshot when asked to and
// starts the snapshot loop.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.Restore && b.cfg.DumpPath != "" {
		if err := b.restore(); err != nil {
			return err
		}
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

func (b *Backend) restore() error {
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	tables := make([]string, 0, len(model.DatabaseModels))
	for _, m := range model.DatabaseModels {
		tables = append(tables, m.(interface{ TableName() string }).TableName())
	}

	start := time.Now()
	if err := database.RestoreFromDisk(b.db, b.cfg.DumpPath, tables...); err != nil {
		return fmt.Errorf("failed to restore %s: %w", b.cfg.DumpPath, err)
	}

	var runs int64
	b.db.Model(&model.Run{}).Count(&runs)
	b.logs.Logger().Info("Restored runs from snapshot",
		"path", b.cfg.DumpPath, "runs", runs, "duration", time.Since(start))
	return nil
}

// SaveRun records the run and marks the database as changed since the last
// snapshot.
func (b *Backend) SaveRun(run *core.Run) error {
	if err := b.Backend.SaveRun(run); err != nil {
		return err
	}
	b.dirty.Store(true)
	return nil
}

// Close stops the snapshot loop, writes a last snapshot if anything changed
// and closes the database. It is safe to call more than once.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()

	var errs []error
	if b.cfg.DumpPath != "" {
		if _, err := b.dumpIfDirty(); err != nil {
			b.logs.Logger().Error("Final snapshot failed", "path", b.cfg.DumpPath, "error", err)
			errs = append(errs, err)
		}
	}
	errs = append(errs, b.Backend.Close())
	return errors.Join(errs...)
}

// Dump writes a snapshot to DumpPath regardless of whether anything changed.
func (b *Backend) Dump() error {
	start := time.Now()
	b.dirty.Store(false)
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		b.dirty.Store(true)
		return err
	}
	b.logs.Logger().Debug("Snapshot written", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

func (b *Backend) dumpIfDirty() (bool, error) {
	if !b.dirty.Load() {
		return false, nil
	}
	return true, b.Dump()
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if _, err := b.dumpIfDirty(); err != nil {
				b.logs.Logger().Error("Periodic snapshot failed", "path", b.cfg.DumpPath, "error", err)
			}
		}
	}
}
