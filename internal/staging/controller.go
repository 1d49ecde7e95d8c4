// Package staging decides when a depleted stage drops off and the next one
// takes over.
package staging

import (
	"github.com/waterrocket/simulator/internal/physics"
	"github.com/waterrocket/simulator/pkg/core"
)

// Propellant is the working state of the active stage's tank. The simulator
// owns one per run and threads it through every step.
type Propellant struct {
	WaterMass float64
	Pressure  float64
}

// Controller is a three-state machine over the stage index. Stage 0 is the
// initial state and the last stage is terminal.
type Controller struct {
	specs   [core.StageCount]core.StageSpec
	configs [core.StageCount]core.StageConfig
	stage   int
}

// NewController starts at the first stage.
func NewController(configs [core.StageCount]core.StageConfig, specs [core.StageCount]core.StageSpec) *Controller {
	return &Controller{specs: specs, configs: configs}
}

// Stage returns the 0-based index of the active stage.
func (c *Controller) Stage() int {
	return c.stage
}

// Spec returns the StageSpec of the active stage.
func (c *Controller) Spec() core.StageSpec {
	return c.specs[c.stage]
}

// Load returns the initial propellant of the active stage.
func (c *Controller) Load() Propellant {
	cfg := c.configs[c.stage]
	return Propellant{WaterMass: cfg.WaterMass, Pressure: cfg.Pressure}
}

// Terminal reports whether no further separation can happen.
func (c *Controller) Terminal() bool {
	return c.stage >= core.StageCount-1 || !c.specs[c.stage].Separates()
}

// Evaluate runs the transition rule once. The active stage separates when its
// separation time has been reached and its water is gone; the next stage's
// propellant is then loaded into prop and the separation event returned.
func (c *Controller) Evaluate(elapsed float64, prop *Propellant, k physics.Kinematics) (core.SeparationEvent, bool) {
	if c.Terminal() {
		return core.SeparationEvent{}, false
	}
	if elapsed < *c.specs[c.stage].SeparationTime || prop.WaterMass > 0 {
		return core.SeparationEvent{}, false
	}

	event := core.SeparationEvent{
		Time:      elapsed,
		FromStage: c.stage + 1,
		Height:    k.Height,
		Velocity:  k.Velocity,
	}

	c.stage++
	*prop = c.Load()
	return event, true
}
