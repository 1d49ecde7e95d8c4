package playback

import (
	"fmt"
	"math"

	"github.com/waterrocket/simulator/pkg/core"
)

// Panel is the flight readout shown beside a replay.
type Panel struct {
	Time     float64 `json:"time"`     // s
	Height   float64 `json:"height"`   // m
	Velocity float64 `json:"velocity"` // m/s
	Stage    int     `json:"stage"`
	Thrust   float64 `json:"thrust"`  // N
	WaterML  int     `json:"waterMl"` // remaining water in the active stage
}

// PanelOf converts a sample into its readout.
func PanelOf(s core.SimulationState) Panel {
	return Panel{
		Time:     s.Time,
		Height:   s.Height,
		Velocity: s.Velocity,
		Stage:    s.ActiveStage,
		Thrust:   s.Thrust,
		WaterML:  int(math.Round(s.WaterMass * 1000)),
	}
}

func (p Panel) String() string {
	return fmt.Sprintf("time %.2fs  height %.2fm  velocity %.2fm/s  stage %d  thrust %.2fN  water %dmL",
		p.Time, p.Height, p.Velocity, p.Stage, p.Thrust, p.WaterML)
}
