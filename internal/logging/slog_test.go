package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	// Capture stdout to verify nothing is written there
	origStdout := captureStdout(t)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Outputs{File: &fileBuf, Level: "info"})
	m.Logger().Info("hello file")

	stdout := origStdout()

	assert.Contains(t, fileBuf.String(), "hello file", "log should appear in file")
	// The "Logging initialized" message from Setup also goes to file, not stdout
	assert.Empty(t, stdout, "nothing should be written to stdout when file is provided")
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	origStdout := captureStdout(t)

	m := NewSlogManager()
	m.Setup(Outputs{Level: "info"})
	m.Logger().Info("hello console")

	stdout := origStdout()

	assert.Contains(t, stdout, "hello console", "log should appear on stdout")
}

func TestSetup_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Outputs{File: &buf, Level: "debug"})

	m.Logger().Debug("debug msg")
	m.Logger().Info("info msg")

	output := buf.String()
	assert.Contains(t, output, "debug msg")
	assert.Contains(t, output, "info msg")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Outputs{File: &buf, Level: "info"})

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewSlogManager()

	m.Setup(Outputs{File: &buf1, Level: "info"})
	m.Logger().Info("first")

	m.Setup(Outputs{File: &buf2, Level: "info"})
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second", "old file should not receive new logs")
	assert.Contains(t, buf2.String(), "second")
}

func TestSetup_SinkReceivesJSON(t *testing.T) {
	var file, sink bytes.Buffer
	m := NewSlogManager()
	m.Setup(Outputs{File: &file, Level: "info", Remote: []io.Writer{&sink}})

	m.Logger().Info("to graylog", "height", 12.5)

	assert.Contains(t, file.String(), "to graylog")
	assert.Contains(t, sink.String(), `"msg":"to graylog"`)
	assert.Contains(t, sink.String(), `"height":12.5`)
}

func TestSetup_TrackRunAddsRunID(t *testing.T) {
	var buf bytes.Buffer
	var current uint
	m := NewSlogManager()
	m.TrackRun(func() uint { return current })
	m.Setup(Outputs{File: &buf, Level: "info"})

	m.Logger().Info("no run yet")
	current = 42
	m.Logger().Info("during run")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.NotContains(t, lines[1], "run_id")
	assert.Contains(t, lines[2], "run_id=42")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	logger := m.Logger()
	assert.Equal(t, slog.Default(), logger)
}

func TestFlush_NilProvider(t *testing.T) {
	m := NewSlogManager()
	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestFanout_SkipsNilHandlers(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	f := newFanout(
		nil,
		slog.NewTextHandler(&buf1, nil),
		slog.NewTextHandler(&buf2, nil),
	)
	require.Len(t, f, 2)

	slog.New(f).Info("separation", "stage", 1)

	assert.Contains(t, buf1.String(), "stage=1")
	assert.Contains(t, buf2.String(), "stage=1")
}

func TestFanout_EnabledIfAnyHandlerIs(t *testing.T) {
	ctx := context.Background()
	info := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})

	assert.False(t, newFanout().Enabled(ctx, slog.LevelError))
	assert.False(t, newFanout(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, newFanout(info, debug).Enabled(ctx, slog.LevelDebug))
}

func TestFanout_PerHandlerLevel(t *testing.T) {
	var verbose, quiet bytes.Buffer
	f := newFanout(
		slog.NewTextHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)

	slog.New(f).Debug("step")

	assert.Contains(t, verbose.String(), "step")
	assert.Empty(t, quiet.String())
}

func TestFanout_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(slog.NewTextHandler(&buf, nil))

	assert.Equal(t, f, f.WithGroup(""))

	slog.New(f.WithAttrs([]slog.Attr{slog.String("component", "runner")}).WithGroup("stage")).
		Info("burnout", "index", 2)

	assert.Contains(t, buf.String(), "component=runner")
	assert.Contains(t, buf.String(), "stage.index=2")
}

// errorHandler is a slog.Handler that always returns an error from Handle.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestFanout_HandleErrorDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	f := newFanout(&errorHandler{}, slog.NewTextHandler(&buf, nil))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "should reach spy", 0)
	err := f.Handle(context.Background(), r)

	assert.EqualError(t, err, "handler error")
	assert.Contains(t, buf.String(), "should reach spy")
}

func TestRunStamp_KeepsIDThroughDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	id := uint(0)
	h := runStamp{next: slog.NewTextHandler(&buf, nil), current: func() uint { return id }}

	logger := slog.New(h).With("component", "api").WithGroup("req")
	logger.Info("idle")
	id = 7
	logger.Info("playback", "t", 1.5)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "run_id")
	assert.Contains(t, lines[1], "component=api")
	assert.Contains(t, lines[1], "req.t=1.5")
	assert.Contains(t, lines[1], "req.run_id=7")
}

func TestSetup_RemoteLevel(t *testing.T) {
	var file, remote bytes.Buffer
	m := NewSlogManager()
	m.Setup(Outputs{File: &file, Level: "debug", Remote: []io.Writer{&remote}, RemoteLevel: "error"})

	m.Logger().Info("recorded")
	m.Logger().Error("export failed")

	assert.Contains(t, file.String(), "recorded")
	assert.NotContains(t, remote.String(), "recorded")
	assert.Contains(t, remote.String(), `"msg":"export failed"`)
}

func TestFlush_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider() // no exporter, just validates non-nil path
	m := NewSlogManager()

	var buf bytes.Buffer
	m.Setup(Outputs{File: &buf, Level: "info", Provider: provider})

	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Outputs{File: &buf, Level: "info", Provider: provider})

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
}

// captureStdout redirects os.Stdout to a pipe and returns a function
// that restores stdout and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	origStdout := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = origStdout
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
