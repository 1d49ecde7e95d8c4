// Package physics holds the water-rocket force models and the fixed-step
// integrator. Every function here is pure: state goes in, state comes out.
package physics

// Environment and engine constants.
const (
	Gravity             = 9.81     // m/s²
	WaterDensity        = 1000.0   // kg/m³
	AirDensity          = 1.225    // kg/m³
	DragCoefficient     = 0.75     // dimensionless
	NozzleArea          = 0.0001   // m²
	AtmosphericPressure = 101325.0 // Pa
	AdiabaticIndex      = 1.4
)

// Integration and verdict constants.
const (
	TimeStep      = 0.01 // s
	MaxTime       = 30.0 // s
	SuccessHeight = 50.0 // m
)

// MinAirVolumeFraction is the smallest air volume, as a fraction of the tank
// volume, used in the pressure update. Anything smaller is clamped to it.
const MinAirVolumeFraction = 1e-3
