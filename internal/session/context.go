package session

import (
	"errors"
	"sync"

	"github.com/waterrocket/simulator/pkg/core"
)

// ErrNoCurrentRun is returned when nothing has been launched, or the last run
// was discarded.
var ErrNoCurrentRun = errors.New("no current run")

// Context holds the run currently offered for playback
type Context struct {
	mu  sync.RWMutex
	run *core.Run
}

// NewContext creates an empty Context
func NewContext() *Context {
	return &Context{}
}

// Current returns the current run
func (c *Context) Current() (*core.Run, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.run == nil {
		return nil, ErrNoCurrentRun
	}
	return c.run, nil
}

// Set replaces the current run
func (c *Context) Set(run *core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
}

// Discard drops the current run. It reports whether there was one.
func (c *Context) Discard() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.run != nil
	c.run = nil
	return had
}
