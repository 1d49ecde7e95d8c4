package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waterrocket/simulator/internal/config"
	"github.com/waterrocket/simulator/pkg/core"
)

func newRun(site string, maxHeight float64) *core.Run {
	return &core.Run{
		Site:  core.LaunchSite{Name: site},
		Input: core.DefaultLaunchInput(),
		Result: core.SimulationResult{
			Trajectory: []core.SimulationState{
				{Time: 0, Height: 0.5, Velocity: 50, ActiveStage: 1, Thrust: 90, WaterMass: 0.4},
				{Time: 0.01, Height: maxHeight, Velocity: 49, ActiveStage: 1, Thrust: 88, WaterMass: 0.39},
			},
			Events:  []core.SeparationEvent{},
			Summary: core.Summary{MaxHeight: maxHeight, MaxHeightTime: 0.01, Success: maxHeight >= 50, TotalElapsedTime: 0.02},
		},
	}
}

func TestSaveRun_AssignsIDsAndSites(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.Init())
	defer b.Close()

	first := newRun("Field", 10)
	second := newRun("Beach", 20)
	third := newRun("Field", 30)

	require.NoError(t, b.SaveRun(first))
	require.NoError(t, b.SaveRun(second))
	require.NoError(t, b.SaveRun(third))

	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)
	assert.Equal(t, uint(3), third.ID)
	assert.False(t, first.CreatedAt.IsZero())

	assert.Equal(t, first.Site.ID, third.Site.ID)
	assert.NotEqual(t, first.Site.ID, second.Site.ID)

	assert.Empty(t, b.GetExportedFilePath())
}

func TestSaveRun_KeepsCreatedAt(t *testing.T) {
	b := New(config.MemoryConfig{})
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	run := newRun("Field", 10)
	run.CreatedAt = at
	require.NoError(t, b.SaveRun(run))
	assert.Equal(t, at, run.CreatedAt)
}

func TestGetRun(t *testing.T) {
	b := New(config.MemoryConfig{})
	run := newRun("Field", 42)
	require.NoError(t, b.SaveRun(run))

	got, err := b.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	// callers get a copy
	got.Site.Name = "changed"
	again, err := b.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Field", again.Site.Name)
}

func TestGetRun_NotFound(t *testing.T) {
	b := New(config.MemoryConfig{})
	_, err := b.GetRun(99)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	b := New(config.MemoryConfig{})
	for i, h := range []float64{10, 60, 30} {
		run := newRun("Field", h)
		require.NoError(t, b.SaveRun(run))
		require.Equal(t, uint(i+1), run.ID)
	}

	all, err := b.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint(3), all[0].ID)
	assert.Equal(t, uint(1), all[2].ID)
	assert.Equal(t, 2, all[0].Samples)
	assert.Equal(t, "Field", all[0].SiteName)
	assert.True(t, all[1].Success)

	limited, err := b.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, uint(2), limited[1].ID)
}

func TestListRuns_Empty(t *testing.T) {
	b := New(config.MemoryConfig{})
	runs, err := b.ListRuns(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSaveRun_ExportsJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: false})

	run := newRun("Field", 12.5)
	require.NoError(t, b.SaveRun(run))

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "run_1_"))
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export RunExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, ExportVersion, export.ExportVersion)
	assert.Equal(t, uint(1), export.ID)
	assert.Equal(t, TrajectoryColumns, export.Columns)
	require.Len(t, export.Trajectory, 2)
	assert.Equal(t, []float64{0.01, 12.5, 49, 0, 1, 88, 0.39}, export.Trajectory[1])
	assert.Equal(t, 12.5, export.Summary.MaxHeight)
	assert.NotNil(t, export.Events)
}

func TestSaveRun_ExportsGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: filepath.Join(dir, "nested"), CompressOutput: true})

	require.NoError(t, b.SaveRun(newRun("Field", 70)))

	path := b.GetExportedFilePath()
	require.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export RunExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.True(t, export.Summary.Success)
	assert.Equal(t, "Field", export.Site.Name)
}

func TestBuildExport_NilEvents(t *testing.T) {
	run := newRun("Field", 1)
	run.Result.Events = nil
	export := buildExport(run)
	assert.NotNil(t, export.Events)
	assert.Empty(t, export.Events)
}

func TestSaveRun_FailedExportIsNotKept(t *testing.T) {
	// a file where the output directory should be
	blocker := filepath.Join(t.TempDir(), "runs")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	b := New(config.MemoryConfig{OutputDir: blocker})

	run := newRun("Field", 12.5)
	require.Error(t, b.SaveRun(run))
	assert.Zero(t, run.ID)

	_, err := b.GetRun(1)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	runs, err := b.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
