package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/waterrocket/simulator/internal/config"
	"github.com/waterrocket/simulator/internal/dispatcher"
	"github.com/waterrocket/simulator/internal/influx"
	"github.com/waterrocket/simulator/internal/logging"
	"github.com/waterrocket/simulator/internal/metrics"
	intOtel "github.com/waterrocket/simulator/internal/otel"
	"github.com/waterrocket/simulator/internal/runner"
	"github.com/waterrocket/simulator/internal/storage"
)

// app holds every service a command needs, built in dependency order
type app struct {
	started time.Time

	logFile  *os.File
	graylog  io.WriteCloser
	otel     *intOtel.Provider
	logs     *logging.SlogManager
	log      *slog.Logger
	zlog     zerolog.Logger
	registry *prometheus.Registry

	backend    storage.Backend
	influx     *influx.Manager
	metrics    *metrics.Metrics
	dispatcher *dispatcher.Dispatcher
	runner     *runner.Service
}

// newApp sets up logging, storage, exporters and the runner. configErr is
// the result of reading the config file and is only logged.
func newApp(ctx context.Context, configErr error) (*app, error) {
	a := &app{started: time.Now()}

	if err := a.setupLogging(ctx); err != nil {
		return nil, err
	}
	if configErr != nil {
		a.log.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.log.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	if err := a.setupStorage(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.setupInflux(ctx)
	if err := a.setupMetrics(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.setupRunner(); err != nil {
		a.Close(ctx)
		return nil, err
	}

	return a, nil
}

func (a *app) setupLogging(ctx context.Context) error {
	a.logs = logging.NewSlogManager()

	f, err := logging.OpenLogFile(viper.GetString("logsDir"), appName, a.started)
	if err != nil {
		return err
	}
	a.logFile = f

	otelCfg := config.GetOTelConfig()
	var otelErr error
	a.otel, otelErr = intOtel.New(ctx, intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    a.logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if otelErr != nil {
		// without OTel logs, but metrics can still be bridged
		a.otel, _ = intOtel.New(ctx, intOtel.Config{ServiceName: otelCfg.ServiceName})
	}
	var otelLogProvider *sdklog.LoggerProvider
	if a.otel != nil {
		otelLogProvider = a.otel.LoggerProvider()
	}

	var sinks []io.Writer
	var graylogErr error
	if viper.GetBool("graylog.enabled") {
		a.graylog, graylogErr = logging.NewGraylogWriter(viper.GetString("graylog.address"))
		if graylogErr == nil {
			sinks = append(sinks, a.graylog)
		}
	}

	level := viper.GetString("logLevel")
	a.logs.TrackRun(func() uint {
		if a.runner == nil {
			return 0
		}
		return a.runner.CurrentID()
	})
	a.logs.Setup(logging.Outputs{
		File:        a.logFile,
		Level:       level,
		Provider:    otelLogProvider,
		Remote:      sinks,
		RemoteLevel: viper.GetString("graylog.level"),
	})
	a.log = a.logs.Logger()
	a.log.Info("Logging to file", "path", f.Name(), "version", Version, "build", BuildDate)

	if otelErr != nil {
		a.log.Error("Failed to initialize OTel provider", "error", otelErr)
	} else if otelCfg.Enabled {
		a.log.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
	}
	if graylogErr != nil {
		a.log.Error("Failed to initialize Graylog writer", "error", graylogErr)
	}

	zlevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	a.zlog = zerolog.New(a.logFile).Level(zlevel).With().Timestamp().Logger()

	return nil
}

func (a *app) setupStorage() error {
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		LogManager: a.logs,
		Postgres:   config.GetPostgresConfig(),
	})
	if err != nil {
		a.log.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		a.log.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return err
	}
	a.backend = backend
	a.log.Info("Storage backend initialized", "type", storageCfg.Type)
	return nil
}

func (a *app) setupInflux(ctx context.Context) {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}

	m := influx.NewManager(a.zlog.With().Str("component", "influx").Logger(), cfg)
	if err := m.Connect(ctx); err != nil {
		a.log.Warn("InfluxDB export disabled", "error", err)
		return
	}
	a.influx = m
	a.log.Info("InfluxDB export ready", "url", cfg.URL, "connected", m.IsValid)
}

func (a *app) setupMetrics() error {
	if !viper.GetBool("metrics.enabled") {
		return nil
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(a.registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	a.metrics = m

	if a.otel != nil {
		if err := a.otel.ExportMetrics(a.registry); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) setupRunner() error {
	d, err := dispatcher.New(logging.NewEventLogger(a.zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.dispatcher = d

	svc, err := runner.NewService(runner.Dependencies{
		Backend:    a.backend,
		Dispatcher: d,
		LogManager: a.logs,
	})
	if err != nil {
		return err
	}

	// typed nils must not reach the interfaces
	var exporter runner.Exporter
	if a.influx != nil {
		exporter = a.influx
	}
	var observer runner.Observer
	if a.metrics != nil {
		observer = a.metrics
	}
	if err := svc.RegisterHandlers(exporter, observer); err != nil {
		return fmt.Errorf("failed to subscribe run handlers: %w", err)
	}

	a.runner = svc
	return nil
}

// Close drains the dispatcher and releases everything in reverse order.
func (a *app) Close(ctx context.Context) {
	var errs []error

	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.influx != nil {
		errs = append(errs, a.influx.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.log != nil {
		if err := errors.Join(errs...); err != nil {
			a.log.Error("Shutdown finished with errors", "error", err)
		} else {
			a.log.Info("Shutdown complete", "uptime", time.Since(a.started))
		}
	}

	if a.otel != nil {
		_ = a.otel.Shutdown(ctx)
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
