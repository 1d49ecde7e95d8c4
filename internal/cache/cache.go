package cache

import (
	"sync"

	"github.com/waterrocket/simulator/pkg/core"
)

// DefaultRunCapacity is used when NewRunCache is given a non-positive size.
const DefaultRunCapacity = 16

// RunCache keeps the most recently stored or loaded runs so repeated reads of
// the same run skip reloading its trajectory. Runs are never modified after
// they are recorded, so cached values are shared.
type RunCache struct {
	mu       sync.Mutex
	capacity int
	runs     map[uint]*core.Run
	order    []uint // insertion order, oldest first
}

// NewRunCache creates a RunCache holding at most capacity runs.
func NewRunCache(capacity int) *RunCache {
	if capacity <= 0 {
		capacity = DefaultRunCapacity
	}
	return &RunCache{
		capacity: capacity,
		runs:     make(map[uint]*core.Run, capacity),
		order:    make([]uint, 0, capacity),
	}
}

// Get returns a copy of the cached run header; the result slices are shared.
func (c *RunCache) Get(id uint) (*core.Run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	run, ok := c.runs[id]
	if !ok {
		return nil, false
	}
	cp := *run
	return &cp, true
}

// Add stores run, evicting the oldest entry when full.
func (c *RunCache) Add(run *core.Run) {
	if run == nil || run.ID == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *run
	if _, ok := c.runs[run.ID]; ok {
		c.runs[run.ID] = &cp
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.runs, oldest)
	}
	c.runs[run.ID] = &cp
	c.order = append(c.order, run.ID)
}

// Len returns the number of cached runs.
func (c *RunCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}

// Reset empties the cache.
func (c *RunCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs = make(map[uint]*core.Run, c.capacity)
	c.order = c.order[:0]
}
