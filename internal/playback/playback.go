// Package playback replays a finished simulation by time. It only reads the
// result it is given.
package playback

import (
	"math"

	"github.com/waterrocket/simulator/internal/physics"
	"github.com/waterrocket/simulator/pkg/core"
)

// FrameInterval is the replay clock tick, one display frame at ~60 Hz.
const FrameInterval = 0.016

// Index maps a time to a trajectory index: floor(t/dt) clamped to the
// trajectory bounds. It returns -1 for an empty trajectory.
func Index(result *core.SimulationResult, t float64) int {
	n := len(result.Trajectory)
	if n == 0 {
		return -1
	}
	if math.IsNaN(t) || t <= 0 {
		return 0
	}
	idx := math.Floor(t / physics.TimeStep)
	if idx >= float64(n-1) {
		return n - 1
	}
	return int(idx)
}

// At returns the sample shown at time t.
func At(result *core.SimulationResult, t float64) (core.SimulationState, bool) {
	idx := Index(result, t)
	if idx < 0 {
		return core.SimulationState{}, false
	}
	return result.Trajectory[idx], true
}

// Cursor advances through a result at a fixed frame interval
type Cursor struct {
	result   *core.SimulationResult
	interval float64
	now      float64
}

// NewCursor starts a replay at t=0. A non-positive interval uses FrameInterval.
func NewCursor(result *core.SimulationResult, interval float64) *Cursor {
	if interval <= 0 {
		interval = FrameInterval
	}
	return &Cursor{result: result, interval: interval}
}

// Now returns the replay clock.
func (c *Cursor) Now() float64 {
	return c.now
}

// Advance moves the clock one frame and returns the state to display. done is
// true once the clock has passed the end of the flight; the state is then the
// final sample.
func (c *Cursor) Advance() (state core.SimulationState, done bool) {
	c.now += c.interval
	state, ok := At(c.result, c.now)
	if !ok {
		return state, true
	}
	return state, c.now >= c.result.TotalElapsedTime
}

// Reset rewinds the replay clock.
func (c *Cursor) Reset() {
	c.now = 0
}
