package simulator

import (
	"github.com/waterrocket/simulator/internal/physics"
	"github.com/waterrocket/simulator/pkg/core"
)

// Summarize reduces a trajectory. MaxHeightTime is the time of the first
// sample at the peak; success is a peak of at least SuccessHeight.
func Summarize(trajectory []core.SimulationState, elapsed float64) core.Summary {
	summary := core.Summary{TotalElapsedTime: elapsed}
	if len(trajectory) == 0 {
		return summary
	}

	summary.MaxHeight = trajectory[0].Height
	summary.MaxHeightTime = trajectory[0].Time
	for _, s := range trajectory[1:] {
		if s.Height > summary.MaxHeight {
			summary.MaxHeight = s.Height
			summary.MaxHeightTime = s.Time
		}
	}
	summary.Success = summary.MaxHeight >= physics.SuccessHeight

	return summary
}
