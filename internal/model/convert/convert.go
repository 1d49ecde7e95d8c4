package convert

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/waterrocket/simulator/internal/geo"
	"github.com/waterrocket/simulator/internal/model"
	"github.com/waterrocket/simulator/pkg/core"
)

// LaunchSiteToCore converts a GORM LaunchSite back to WGS84 degrees.
func LaunchSiteToCore(s model.LaunchSite) core.LaunchSite {
	site := core.LaunchSite{ID: s.ID, Name: s.Name}
	if lon, lat, ok := geo.Coords4326From3857(s.Location); ok {
		site.Longitude = lon
		site.Latitude = lat
	}
	return site
}

// RunToCore converts a GORM Run with preloaded LaunchSite, Samples and
// Separations to a core.Run. Samples are ordered by step.
func RunToCore(r model.Run) (*core.Run, error) {
	var input core.LaunchInput
	if err := json.Unmarshal(r.Input, &input); err != nil {
		return nil, fmt.Errorf("unmarshal input of run %d: %w", r.ID, err)
	}
	var summary core.Summary
	if err := json.Unmarshal(r.Summary, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary of run %d: %w", r.ID, err)
	}

	samples := append([]model.RunSample(nil), r.Samples...)
	sort.Slice(samples, func(i, j int) bool { return samples[i].Step < samples[j].Step })

	trajectory := make([]core.SimulationState, len(samples))
	for i, s := range samples {
		trajectory[i] = core.SimulationState{
			Time:         s.Time,
			Height:       s.Height,
			Velocity:     s.Velocity,
			Acceleration: s.Acceleration,
			ActiveStage:  int(s.Stage),
			Thrust:       s.Thrust,
			WaterMass:    s.WaterMass,
		}
	}

	events := make([]core.SeparationEvent, len(r.Separations))
	for i, e := range r.Separations {
		events[i] = core.SeparationEvent{
			Time:      e.Time,
			FromStage: int(e.FromStage),
			Height:    e.Height,
			Velocity:  e.Velocity,
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })

	return &core.Run{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Site:      LaunchSiteToCore(r.LaunchSite),
		Input:     input,
		Result: core.SimulationResult{
			Trajectory: trajectory,
			Events:     events,
			Summary:    summary,
		},
	}, nil
}

// RunToSummary converts a GORM Run with preloaded LaunchSite to its list view.
// Samples need not be loaded.
func RunToSummary(r model.Run) (core.RunSummary, error) {
	var summary core.Summary
	if err := json.Unmarshal(r.Summary, &summary); err != nil {
		return core.RunSummary{}, fmt.Errorf("unmarshal summary of run %d: %w", r.ID, err)
	}
	return core.RunSummary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		SiteName:  r.LaunchSite.Name,
		Samples:   r.SampleCount,
		Summary:   summary,
	}, nil
}
