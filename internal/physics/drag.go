package physics

import (
	"math"

	"github.com/waterrocket/simulator/pkg/core"
)

// ComputeDrag returns the quadratic drag force. The sign follows velocity, so
// the caller subtracts it to oppose motion either way.
func ComputeDrag(velocity float64, spec core.StageSpec) float64 {
	return 0.5 * AirDensity * velocity * math.Abs(velocity) * DragCoefficient * spec.Area
}
