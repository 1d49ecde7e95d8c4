package physics

import (
	"math"

	"github.com/waterrocket/simulator/pkg/core"
)

// ComputeThrust returns the nozzle thrust for one step and the propellant
// state left after it.
//
// Water leaves the nozzle at the Bernoulli exit velocity for the pressure
// difference across it, and the trapped air is re-pressurized with the
// adiabatic approximation p·(V/V_air)^γ. With no water, or no overpressure,
// there is no thrust and the state is returned untouched.
func ComputeThrust(waterMass, pressure float64, spec core.StageSpec, dt float64) (thrust, newWaterMass, newPressure float64) {
	if waterMass <= 0 || pressure <= AtmosphericPressure {
		return 0, waterMass, pressure
	}

	exitVelocity := math.Sqrt(2 * (pressure - AtmosphericPressure) / WaterDensity)
	massFlow := WaterDensity * NozzleArea * exitVelocity
	thrust = massFlow * exitVelocity

	newWaterMass = math.Max(0, waterMass-massFlow*dt)

	airVolume := clampAirVolume(spec.TankVolume-newWaterMass/WaterDensity, spec.TankVolume)
	newPressure = pressure * math.Pow(spec.TankVolume/airVolume, AdiabaticIndex)

	return thrust, newWaterMass, newPressure
}

// clampAirVolume keeps the air volume at or above MinAirVolumeFraction of the
// tank so the pressure ratio stays finite.
func clampAirVolume(airVolume, tankVolume float64) float64 {
	floor := MinAirVolumeFraction * tankVolume
	if airVolume < floor {
		return floor
	}
	return airVolume
}
