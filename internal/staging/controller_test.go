package staging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterrocket/simulator/internal/physics"
	"github.com/waterrocket/simulator/pkg/core"
)

func newTestController() *Controller {
	configs := [core.StageCount]core.StageConfig{
		{WaterMass: 0.5, Pressure: 5 * core.PascalsPerAtmosphere},
		{WaterMass: 0.4, Pressure: 4.5 * core.PascalsPerAtmosphere},
		{WaterMass: 0.3, Pressure: 4 * core.PascalsPerAtmosphere},
	}
	return NewController(configs, physics.DefaultStages())
}

func TestController_InitialState(t *testing.T) {
	c := newTestController()

	assert.Equal(t, 0, c.Stage())
	assert.False(t, c.Terminal())
	assert.Equal(t, Propellant{WaterMass: 0.5, Pressure: 5 * core.PascalsPerAtmosphere}, c.Load())
	assert.Equal(t, 0.15, c.Spec().DryMass)
}

func TestController_HoldsBeforeSeparationTime(t *testing.T) {
	c := newTestController()
	prop := Propellant{WaterMass: 0, Pressure: core.PascalsPerAtmosphere}

	_, ok := c.Evaluate(2.99, &prop, physics.Kinematics{Height: 10})

	assert.False(t, ok)
	assert.Equal(t, 0, c.Stage())
	assert.Equal(t, 0.0, prop.WaterMass)
}

func TestController_HoldsWhileWaterRemains(t *testing.T) {
	c := newTestController()
	prop := Propellant{WaterMass: 0.001, Pressure: 2 * core.PascalsPerAtmosphere}

	_, ok := c.Evaluate(5, &prop, physics.Kinematics{Height: 10})

	assert.False(t, ok)
	assert.Equal(t, 0, c.Stage())
	assert.Equal(t, 0.001, prop.WaterMass)
}

func TestController_Separates(t *testing.T) {
	c := newTestController()
	prop := Propellant{WaterMass: 0, Pressure: 7 * core.PascalsPerAtmosphere}
	k := physics.Kinematics{Height: 42.5, Velocity: -1.25}

	event, ok := c.Evaluate(3, &prop, k)

	require.True(t, ok)
	assert.Equal(t, core.SeparationEvent{Time: 3, FromStage: 1, Height: 42.5, Velocity: -1.25}, event)
	assert.Equal(t, 1, c.Stage())
	assert.Equal(t, Propellant{WaterMass: 0.4, Pressure: 4.5 * core.PascalsPerAtmosphere}, prop)
	assert.Equal(t, 0.12, c.Spec().DryMass)
}

func TestController_LastStageIsTerminal(t *testing.T) {
	c := newTestController()
	prop := Propellant{}

	_, ok := c.Evaluate(3, &prop, physics.Kinematics{})
	require.True(t, ok)
	prop.WaterMass = 0
	_, ok = c.Evaluate(6, &prop, physics.Kinematics{})
	require.True(t, ok)
	require.Equal(t, 2, c.Stage())
	assert.True(t, c.Terminal())

	prop.WaterMass = 0
	_, ok = c.Evaluate(100, &prop, physics.Kinematics{})
	assert.False(t, ok)
	assert.Equal(t, 2, c.Stage())
	assert.Equal(t, 0.0, prop.WaterMass)
}

func TestController_OneTransitionPerEvaluation(t *testing.T) {
	c := newTestController()
	prop := Propellant{}

	// both thresholds passed, but stage 2 was just loaded with water
	_, ok := c.Evaluate(10, &prop, physics.Kinematics{})
	require.True(t, ok)
	assert.Equal(t, 1, c.Stage())
	assert.Equal(t, 0.4, prop.WaterMass)
}
