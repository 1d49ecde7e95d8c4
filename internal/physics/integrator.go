package physics

// Kinematics is the vertical motion state of the rocket
type Kinematics struct {
	Height       float64
	Velocity     float64
	Acceleration float64
}

// Step advances k by dt under the given forces.
// Velocity is updated first and the new velocity moves the height.
func Step(k Kinematics, thrust, drag, totalMass, dt float64) Kinematics {
	a := (thrust - totalMass*Gravity - drag) / totalMass
	v := k.Velocity + a*dt
	return Kinematics{
		Height:       k.Height + v*dt,
		Velocity:     v,
		Acceleration: a,
	}
}
