// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/waterrocket/simulator/pkg/core"
)

// ExportVersion is bumped whenever the export layout changes.
const ExportVersion = "1"

// TrajectoryColumns names the values of each exported trajectory row.
var TrajectoryColumns = []string{"time", "height", "velocity", "acceleration", "stage", "thrust", "waterMass"}

// RunExport is the root JSON structure of an exported run
type RunExport struct {
	ExportVersion string                 `json:"exportVersion"`
	ID            uint                   `json:"id"`
	CreatedAt     string                 `json:"createdAt"`
	Site          core.LaunchSite        `json:"site"`
	Input         core.LaunchInput       `json:"input"`
	Summary       core.Summary           `json:"summary"`
	Events        []core.SeparationEvent `json:"events"`
	Columns       []string               `json:"columns"`
	Trajectory    [][]float64            `json:"trajectory"`
}

// exportJSON writes the run to a (gzipped) JSON file
func (b *Backend) exportJSON(run *core.Run) error {
	export := buildExport(run)

	timestamp := run.CreatedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("run_%d_%s.json.gz", run.ID, timestamp)
	} else {
		filename = fmt.Sprintf("run_%d_%s.json", run.ID, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func buildExport(run *core.Run) RunExport {
	export := RunExport{
		ExportVersion: ExportVersion,
		ID:            run.ID,
		CreatedAt:     run.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		Site:          run.Site,
		Input:         run.Input,
		Summary:       run.Result.Summary,
		Events:        run.Result.Events,
		Columns:       TrajectoryColumns,
		Trajectory:    make([][]float64, 0, len(run.Result.Trajectory)),
	}
	if export.Events == nil {
		export.Events = []core.SeparationEvent{}
	}

	for _, s := range run.Result.Trajectory {
		export.Trajectory = append(export.Trajectory, []float64{
			s.Time,
			s.Height,
			s.Velocity,
			s.Acceleration,
			float64(s.ActiveStage),
			s.Thrust,
			s.WaterMass,
		})
	}

	return export
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
