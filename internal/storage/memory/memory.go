// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/waterrocket/simulator/internal/config"
	"github.com/waterrocket/simulator/pkg/core"
)

// Backend stores runs in memory and optionally exports each one to JSON
type Backend struct {
	cfg   config.MemoryConfig
	runs  map[uint]*core.Run
	sites map[string]uint // keyed by site name

	idCounter      uint
	siteCounter    uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		runs:  make(map[uint]*core.Run),
		sites: make(map[string]uint),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveRun stores a copy of the run and, when an output directory is
// configured, writes it to disk. A run whose export fails is not kept.
func (b *Backend) SaveRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	run.ID = b.idCounter
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	siteID, ok := b.sites[run.Site.Name]
	if !ok {
		b.siteCounter++
		siteID = b.siteCounter
		b.sites[run.Site.Name] = siteID
	}
	run.Site.ID = siteID

	stored := *run
	b.runs[run.ID] = &stored

	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := b.exportJSON(&stored); err != nil {
		id := run.ID
		delete(b.runs, id)
		run.ID = 0
		return fmt.Errorf("export run %d: %w", id, err)
	}
	return nil
}

// GetRun returns a copy of the stored run
func (b *Backend) GetRun(id uint) (*core.Run, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	run, ok := b.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", id, core.ErrRunNotFound)
	}
	out := *run
	return &out, nil
}

// ListRuns returns run summaries, newest first
func (b *Backend) ListRuns(limit int) ([]core.RunSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint, 0, len(b.runs))
	for id := range b.runs {
		ids = append(ids, id)
	}
	// IDs are assigned in save order
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]core.RunSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.runs[id].ToSummary())
	}
	return out, nil
}

// GetExportedFilePath returns the path of the last exported run file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
