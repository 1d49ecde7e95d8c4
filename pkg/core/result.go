// pkg/core/result.go
package core

// SimulationState is one fixed-step sample of the flight
type SimulationState struct {
	Time         float64 `json:"time"`         // s
	Height       float64 `json:"height"`       // m, 0 = launch pad
	Velocity     float64 `json:"velocity"`     // m/s, positive = up
	Acceleration float64 `json:"acceleration"` // m/s²
	ActiveStage  int     `json:"stage"`        // 1-based
	Thrust       float64 `json:"thrust"`       // N
	WaterMass    float64 `json:"waterMass"`    // kg, remaining in the active stage
}

// SeparationEvent records a stage dropping off
type SeparationEvent struct {
	Time      float64 `json:"time"`
	FromStage int     `json:"stage"` // 1-based stage that separated
	Height    float64 `json:"height"`
	Velocity  float64 `json:"velocity"`
}

// Summary is the reduction of a trajectory
type Summary struct {
	MaxHeight        float64 `json:"maxHeight"`
	MaxHeightTime    float64 `json:"maxHeightTime"`
	Success          bool    `json:"success"`
	TotalElapsedTime float64 `json:"totalTime"`
}

// SimulationResult is the complete output of one simulation run.
// It is never modified after the simulator returns it.
type SimulationResult struct {
	Trajectory []SimulationState `json:"trajectory"`
	Events     []SeparationEvent `json:"events"`
	Summary
}
