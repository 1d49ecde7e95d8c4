// Package gormstorage implements the storage.Backend interface on top of GORM.
// The SQLite and Postgres backends wrap it and only differ in how the
// connection is opened.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/waterrocket/simulator/internal/cache"
	"github.com/waterrocket/simulator/internal/logging"
	"github.com/waterrocket/simulator/internal/model"
	"github.com/waterrocket/simulator/internal/model/convert"
	"github.com/waterrocket/simulator/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sampleBatchSize bounds a single multi-row INSERT of trajectory samples.
const sampleBatchSize = 500

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB *gorm.DB
	// Connect opens the database when DB is nil.
	Connect    func() (*gorm.DB, error)
	LogManager *logging.SlogManager
	// Runs caches recently saved and loaded runs; nil uses a default-sized cache.
	Runs *cache.RunCache
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps    Dependencies
	dbReady bool
	sites   *cache.SiteCache
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Runs == nil {
		deps.Runs = cache.NewRunCache(cache.DefaultRunCapacity)
	}
	return &Backend{
		deps:  deps,
		sites: cache.NewSiteCache(),
	}
}

// DB returns the underlying connection, nil before Init.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init connects if needed and migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		if b.deps.Connect == nil {
			return errors.New("no database connection configured")
		}
		db, err := b.deps.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		b.deps.DB = db
	}

	b.deps.LogManager.Logger().Info("Migrating schema")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.deps.LogManager.Logger().Info("Database setup complete")

	b.dbReady = true
	return nil
}

// Close closes the underlying sql connection.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	b.dbReady = false
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// SaveRun writes the run, its samples and separations in one transaction.
func (b *Backend) SaveRun(run *core.Run) error {
	if !b.dbReady {
		return errors.New("database not initialized")
	}

	site, err := convert.CoreToLaunchSite(run.Site)
	if err != nil {
		return err
	}

	err = b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if id, ok := b.sites.Get(site.Name); ok {
			site.ID = id
		} else if _, err := site.GetOrInsert(tx); err != nil {
			return fmt.Errorf("failed to store launch site: %w", err)
		}

		m, err := convert.CoreToRun(run, site.ID)
		if err != nil {
			return err
		}
		samples, separations := m.Samples, m.Separations
		m.Samples, m.Separations = nil, nil

		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for i := range samples {
			samples[i].RunID = m.ID
		}
		if len(samples) > 0 {
			if err := tx.CreateInBatches(samples, sampleBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert samples: %w", err)
			}
		}

		for i := range separations {
			separations[i].RunID = m.ID
		}
		if len(separations) > 0 {
			if err := tx.Create(&separations).Error; err != nil {
				return fmt.Errorf("failed to insert separations: %w", err)
			}
		}

		run.ID = m.ID
		run.CreatedAt = m.CreatedAt
		run.Site.ID = site.ID
		return nil
	})
	if err != nil {
		return err
	}

	// only committed rows may be cached
	b.sites.Set(site.Name, site.ID)
	b.deps.Runs.Add(run)
	return nil
}

// GetRun loads a run with its trajectory.
func (b *Backend) GetRun(id uint) (*core.Run, error) {
	if !b.dbReady {
		return nil, errors.New("database not initialized")
	}
	if run, ok := b.deps.Runs.Get(id); ok {
		return run, nil
	}

	var m model.Run
	err := b.deps.DB.
		Preload("LaunchSite").
		Preload("Samples", func(db *gorm.DB) *gorm.DB { return db.Order("step") }).
		Preload("Separations", func(db *gorm.DB) *gorm.DB { return db.Order("time") }).
		First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %d: %w", id, core.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}

	run, err := convert.RunToCore(m)
	if err != nil {
		return nil, err
	}
	b.deps.Runs.Add(run)
	return run, nil
}

// ListRuns returns run summaries, newest first.
func (b *Backend) ListRuns(limit int) ([]core.RunSummary, error) {
	if !b.dbReady {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = -1
	}

	var runs []model.Run
	err := b.deps.DB.
		Preload("LaunchSite").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	out := make([]core.RunSummary, 0, len(runs))
	for _, m := range runs {
		s, err := convert.RunToSummary(m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
