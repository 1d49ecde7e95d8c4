package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// InstrumentationName names the OTel logger scope.
const InstrumentationName = "waterrocket"

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	runID func() uint
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TrackRun stamps records with run_id = fn() whenever fn returns non-zero.
// It takes effect at the next Setup.
func (m *SlogManager) TrackRun(fn func() uint) {
	m.runID = fn
}

// Outputs selects where Setup sends records.
type Outputs struct {
	// File receives text records; nil writes them to stdout.
	File  io.Writer
	Level string
	// Provider, when set, bridges records to OTel logs.
	Provider *sdklog.LoggerProvider
	// Remote writers receive one JSON document per record, e.g. Graylog.
	Remote []io.Writer
	// RemoteLevel filters the Remote writers; empty means Level.
	RemoteLevel string
}

// Setup (re)builds the logger from out.
func (m *SlogManager) Setup(out Outputs) {
	m.logProvider = out.Provider

	local := handlerOptions(out.Level)
	remote := local
	if out.RemoteLevel != "" {
		remote = handlerOptions(out.RemoteLevel)
	}

	file := out.File
	if file == nil {
		file = osStdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(file, local)}
	for _, w := range out.Remote {
		if w != nil {
			handlers = append(handlers, slog.NewJSONHandler(w, remote))
		}
	}
	if out.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(out.Provider)))
	}

	var handler slog.Handler = newFanout(handlers...)
	if m.runID != nil {
		handler = runStamp{next: handler, current: m.runID}
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", out.Level)
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
