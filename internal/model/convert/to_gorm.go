// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/waterrocket/simulator/internal/geo"
	"github.com/waterrocket/simulator/internal/model"
	"github.com/waterrocket/simulator/pkg/core"
	"gorm.io/datatypes"
)

// CoreToLaunchSite converts a core.LaunchSite to a GORM model.LaunchSite,
// projecting its WGS84 coordinates to EPSG:3857.
func CoreToLaunchSite(s core.LaunchSite) (model.LaunchSite, error) {
	point, err := geo.Coords3857From4326(s.Longitude, s.Latitude)
	if err != nil {
		return model.LaunchSite{}, fmt.Errorf("launch site %q: %w", s.Name, err)
	}
	return model.LaunchSite{
		Name:     s.Name,
		Location: point,
	}, nil
}

// CoreToRun converts a core.Run to a GORM model.Run including its samples and
// separation events. The run's site must already be stored under siteID.
func CoreToRun(r *core.Run, siteID uint) (model.Run, error) {
	input, err := json.Marshal(r.Input)
	if err != nil {
		return model.Run{}, fmt.Errorf("marshal input: %w", err)
	}
	summary, err := json.Marshal(r.Result.Summary)
	if err != nil {
		return model.Run{}, fmt.Errorf("marshal summary: %w", err)
	}

	samples := make([]model.RunSample, len(r.Result.Trajectory))
	for i, s := range r.Result.Trajectory {
		samples[i] = model.RunSample{
			Step:         uint(i),
			Time:         s.Time,
			Height:       s.Height,
			Velocity:     s.Velocity,
			Acceleration: s.Acceleration,
			Stage:        uint8(s.ActiveStage),
			Thrust:       s.Thrust,
			WaterMass:    s.WaterMass,
		}
	}

	separations := make([]model.RunSeparation, len(r.Result.Events))
	for i, e := range r.Result.Events {
		separations[i] = model.RunSeparation{
			Time:      e.Time,
			FromStage: uint8(e.FromStage),
			Height:    e.Height,
			Velocity:  e.Velocity,
		}
	}

	profile, err := geo.FlightProfile(r.Result.Trajectory)
	if err != nil {
		return model.Run{}, err
	}

	return model.Run{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		LaunchSiteID: siteID,
		Input:        datatypes.JSON(input),
		Summary:      datatypes.JSON(summary),
		Success:      r.Result.Success,
		SampleCount:  len(samples),
		Profile:      profile,
		Samples:      samples,
		Separations:  separations,
	}, nil
}
