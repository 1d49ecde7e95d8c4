// pkg/core/stage.go
package core

import (
	"errors"
	"fmt"
	"math"
)

// PascalsPerAtmosphere converts the UI pressure unit into Pa.
const PascalsPerAtmosphere = 101325.0

// StageCount is the number of stages on the rocket.
const StageCount = 3

// ErrInputOutOfRange is returned when a launch input falls outside the
// documented per-stage ranges.
var ErrInputOutOfRange = errors.New("launch input out of range")

// StageSpec is the fixed engineering description of one stage
type StageSpec struct {
	DryMass        float64  `json:"dryMass"`        // kg
	TankVolume     float64  `json:"tankVolume"`     // m³
	Area           float64  `json:"area"`           // m², frontal cross-section for drag
	SeparationTime *float64 `json:"separationTime"` // s, nil for the last stage
}

// Separates reports whether the stage has a separation threshold.
func (s StageSpec) Separates() bool {
	return s.SeparationTime != nil
}

// StageConfig is the propellant load of one stage in SI units
type StageConfig struct {
	WaterMass float64 `json:"waterMass"` // kg
	Pressure  float64 `json:"pressure"`  // Pa, absolute
}

// StageInput is one stage's user input in UI units
type StageInput struct {
	WaterML     int     `json:"waterMl" mapstructure:"waterMl"`
	PressureAtm float64 `json:"pressureAtm" mapstructure:"pressureAtm"`
}

// Config converts the UI units into a StageConfig.
func (in StageInput) Config() StageConfig {
	return StageConfig{
		WaterMass: float64(in.WaterML) / 1000,
		Pressure:  in.PressureAtm * PascalsPerAtmosphere,
	}
}

// LaunchInput holds the inputs for all three stages
type LaunchInput struct {
	Stages [StageCount]StageInput `json:"stages"`
}

// MaxWaterML is the upper bound of the water slider for each stage.
var MaxWaterML = [StageCount]int{1000, 800, 600}

const (
	MinWaterML     = 100
	MinPressureAtm = 2.0
	MaxPressureAtm = 8.0
	PressureStep   = 0.5
)

// DefaultLaunchInput returns the slider positions a fresh session starts with.
func DefaultLaunchInput() LaunchInput {
	return LaunchInput{Stages: [StageCount]StageInput{
		{WaterML: 500, PressureAtm: 5},
		{WaterML: 400, PressureAtm: 4.5},
		{WaterML: 300, PressureAtm: 4},
	}}
}

// Validate checks every stage against the slider ranges.
func (in LaunchInput) Validate() error {
	for i, s := range in.Stages {
		if s.WaterML < MinWaterML || s.WaterML > MaxWaterML[i] {
			return fmt.Errorf("stage %d water %d mL not in [%d,%d]: %w",
				i+1, s.WaterML, MinWaterML, MaxWaterML[i], ErrInputOutOfRange)
		}
		if math.IsNaN(s.PressureAtm) || s.PressureAtm < MinPressureAtm || s.PressureAtm > MaxPressureAtm {
			return fmt.Errorf("stage %d pressure %g atm not in [%g,%g]: %w",
				i+1, s.PressureAtm, MinPressureAtm, MaxPressureAtm, ErrInputOutOfRange)
		}
		if steps := s.PressureAtm / PressureStep; steps != math.Trunc(steps) {
			return fmt.Errorf("stage %d pressure %g atm is not a multiple of %g: %w",
				i+1, s.PressureAtm, PressureStep, ErrInputOutOfRange)
		}
	}
	return nil
}

// Configs converts all stages into SI units.
func (in LaunchInput) Configs() [StageCount]StageConfig {
	var out [StageCount]StageConfig
	for i, s := range in.Stages {
		out[i] = s.Config()
	}
	return out
}
