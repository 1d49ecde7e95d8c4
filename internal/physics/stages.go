package physics

import "github.com/waterrocket/simulator/pkg/core"

func seconds(s float64) *float64 { return &s }

// DefaultStages returns the fixed stage table. A fresh copy is returned on
// every call so callers may not alias each other's specs.
func DefaultStages() [core.StageCount]core.StageSpec {
	return [core.StageCount]core.StageSpec{
		{DryMass: 0.15, TankVolume: 0.0015, Area: 0.0079, SeparationTime: seconds(3)},
		{DryMass: 0.12, TankVolume: 0.0012, Area: 0.0063, SeparationTime: seconds(6)},
		{DryMass: 0.10, TankVolume: 0.001, Area: 0.005},
	}
}
