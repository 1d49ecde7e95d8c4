// Package simulator drives the fixed-step flight loop and reduces its output
// into a summary.
package simulator

import (
	"log/slog"
	"math"

	"github.com/waterrocket/simulator/internal/physics"
	"github.com/waterrocket/simulator/internal/staging"
	"github.com/waterrocket/simulator/pkg/core"
)

// Option configures a simulation run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger traces separations and loop exit at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// MaxSteps is the number of steps that fit in MaxTime.
var MaxSteps = int(math.Round(physics.MaxTime / physics.TimeStep))

// Simulate flies the rocket with the fixed stage table.
func Simulate(configs [core.StageCount]core.StageConfig, opts ...Option) core.SimulationResult {
	return Run(configs, physics.DefaultStages(), opts...)
}

// Run flies the rocket until it falls below the pad or MaxTime elapses.
//
// Sample n is taken at time n·dt and holds the kinematics after that step,
// together with the stage that was active during it. The last sample may be
// below ground.
func Run(configs [core.StageCount]core.StageConfig, specs [core.StageCount]core.StageSpec, opts ...Option) core.SimulationResult {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	ctrl := staging.NewController(configs, specs)
	prop := ctrl.Load()

	var k physics.Kinematics
	trajectory := make([]core.SimulationState, 0, MaxSteps)
	events := make([]core.SeparationEvent, 0, core.StageCount-1)

	step := 0
	for ; step < MaxSteps && k.Height >= 0; step++ {
		elapsed := float64(step) * physics.TimeStep
		spec := ctrl.Spec()

		var thrust float64
		thrust, prop.WaterMass, prop.Pressure = physics.ComputeThrust(prop.WaterMass, prop.Pressure, spec, physics.TimeStep)
		drag := physics.ComputeDrag(k.Velocity, spec)
		k = physics.Step(k, thrust, drag, spec.DryMass+prop.WaterMass, physics.TimeStep)

		trajectory = append(trajectory, core.SimulationState{
			Time:         elapsed,
			Height:       k.Height,
			Velocity:     k.Velocity,
			Acceleration: k.Acceleration,
			ActiveStage:  ctrl.Stage() + 1,
			Thrust:       thrust,
			WaterMass:    prop.WaterMass,
		})

		if event, ok := ctrl.Evaluate(elapsed, &prop, k); ok {
			events = append(events, event)
			if cfg.logger != nil {
				cfg.logger.Debug("Stage separated",
					"stage", event.FromStage,
					"time", event.Time,
					"height", event.Height,
					"velocity", event.Velocity,
				)
			}
		}
	}

	elapsed := float64(step) * physics.TimeStep
	if cfg.logger != nil {
		cfg.logger.Debug("Simulation finished",
			"samples", len(trajectory),
			"elapsed", elapsed,
			"landed", k.Height < 0,
		)
	}

	return core.SimulationResult{
		Trajectory: trajectory,
		Events:     events,
		Summary:    Summarize(trajectory, elapsed),
	}
}
