// pkg/core/run.go
package core

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by run stores when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// LaunchSite is where a run was flown. Coordinates are WGS84 degrees.
type LaunchSite struct {
	ID        uint    `json:"id,omitempty"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Run is a recorded simulation: the inputs it was flown with and its result
type Run struct {
	ID        uint             `json:"id"`
	CreatedAt time.Time        `json:"createdAt"`
	Site      LaunchSite       `json:"site"`
	Input     LaunchInput      `json:"input"`
	Result    SimulationResult `json:"result"`
}

// RunSummary is the list view of a Run without its trajectory
type RunSummary struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	SiteName  string    `json:"siteName"`
	Samples   int       `json:"samples"`
	Summary
}

// ToSummary strips the trajectory off a run.
func (r *Run) ToSummary() RunSummary {
	return RunSummary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		SiteName:  r.Site.Name,
		Samples:   len(r.Result.Trajectory),
		Summary:   r.Result.Summary,
	}
}
