// Package runner launches simulations, records them and keeps the current run
// available for playback.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waterrocket/simulator/internal/dispatcher"
	"github.com/waterrocket/simulator/internal/logging"
	"github.com/waterrocket/simulator/internal/physics"
	"github.com/waterrocket/simulator/internal/playback"
	"github.com/waterrocket/simulator/internal/session"
	"github.com/waterrocket/simulator/internal/simulator"
	"github.com/waterrocket/simulator/internal/storage"
	"github.com/waterrocket/simulator/pkg/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CommandRunRecorded is dispatched after a run has been stored.
const CommandRunRecorded = ":RUN:RECORDED:"

// Subscriber names registered by RegisterHandlers.
const (
	SubscriberMetrics = "metrics"
	SubscriberExport  = "export"
)

const instrumentationName = "github.com/waterrocket/simulator/internal/runner"

// ErrEmptyTrajectory is returned by StateAt when the current run has no samples.
var ErrEmptyTrajectory = errors.New("run has no samples")

// Exporter ships a recorded run to an external sink.
type Exporter interface {
	WriteRun(run *core.Run) error
}

// Observer is notified of every recorded run.
type Observer interface {
	ObserveRun(run *core.Run)
}

// Dependencies holds all dependencies of the Service
type Dependencies struct {
	Backend    storage.Backend
	Session    *session.Context
	Dispatcher *dispatcher.Dispatcher // optional
	LogManager *logging.SlogManager
	// Stages overrides the stage table; nil uses physics.DefaultStages.
	Stages *[core.StageCount]core.StageSpec
	Now    func() time.Time
}

// Service launches and records runs
type Service struct {
	deps     Dependencies
	launched metric.Int64Counter
	apogee   metric.Float64Histogram
}

// NewService creates a Service. OTel instruments come from the global meter
// provider, a no-op unless one was installed.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Backend == nil {
		return nil, errors.New("runner: storage backend is required")
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	s := &Service{deps: deps}

	m := otel.Meter(instrumentationName)
	var err error
	s.launched, err = m.Int64Counter(
		"runs.launched",
		metric.WithDescription("Runs simulated and recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating launched counter: %w", err)
	}
	s.apogee, err = m.Float64Histogram(
		"runs.apogee",
		metric.WithDescription("Peak height of recorded runs"),
		metric.WithUnit("m"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating apogee histogram: %w", err)
	}

	return s, nil
}

// RegisterHandlers subscribes the observer and exporter to recorded runs.
// Each gets its own queue so a slow export never delays the metrics. Either
// argument may be nil.
func (s *Service) RegisterHandlers(exporter Exporter, observer Observer) error {
	d := s.deps.Dispatcher
	if d == nil {
		return nil
	}

	if observer != nil {
		err := d.Subscribe(CommandRunRecorded, SubscriberMetrics, func(e dispatcher.Event) error {
			run, err := recordedRun(e)
			if err != nil {
				return err
			}
			observer.ObserveRun(run)
			return nil
		}, dispatcher.Buffered(64), dispatcher.Logged())
		if err != nil {
			return err
		}
	}

	if exporter != nil {
		err := d.Subscribe(CommandRunRecorded, SubscriberExport, func(e dispatcher.Event) error {
			run, err := recordedRun(e)
			if err != nil {
				return err
			}
			if err := exporter.WriteRun(run); err != nil {
				return fmt.Errorf("export run %d: %w", run.ID, err)
			}
			return nil
		}, dispatcher.Buffered(64), dispatcher.Logged())
		if err != nil {
			return err
		}
	}

	return nil
}

func recordedRun(e dispatcher.Event) (*core.Run, error) {
	run, ok := e.Payload.(*core.Run)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", e.Payload)
	}
	return run, nil
}

func (s *Service) stages() [core.StageCount]core.StageSpec {
	if s.deps.Stages != nil {
		return *s.deps.Stages
	}
	return physics.DefaultStages()
}

// Launch validates the input, simulates the flight, records it and makes it
// the current run.
func (s *Service) Launch(ctx context.Context, input core.LaunchInput, site core.LaunchSite) (*core.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	log := s.deps.LogManager.Logger()

	start := time.Now()
	result := simulator.Run(input.Configs(), s.stages(), simulator.WithLogger(log))

	run := &core.Run{
		CreatedAt: s.deps.Now(),
		Site:      site,
		Input:     input,
		Result:    result,
	}
	if err := s.deps.Backend.SaveRun(run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	s.deps.Session.Set(run)

	attrs := metric.WithAttributes(attribute.Bool("success", result.Success))
	s.launched.Add(ctx, 1, attrs)
	s.apogee.Record(ctx, result.MaxHeight, attrs)

	log.Info("Run recorded",
		"run_id", run.ID,
		"max_height", result.MaxHeight,
		"max_height_time", result.MaxHeightTime,
		"success", result.Success,
		"samples", len(result.Trajectory),
		"duration", time.Since(start),
	)

	if d := s.deps.Dispatcher; d != nil && d.HasSubscribers(CommandRunRecorded) {
		if err := d.Dispatch(dispatcher.NewEvent(CommandRunRecorded, run)); err != nil {
			log.Warn("Run recorded but not dispatched", "run_id", run.ID, "error", err)
		}
	}

	return run, nil
}

// Current returns the run offered for playback.
func (s *Service) Current() (*core.Run, error) {
	return s.deps.Session.Current()
}

// CurrentID returns the ID of the current run, 0 when there is none.
func (s *Service) CurrentID() uint {
	run, err := s.deps.Session.Current()
	if err != nil {
		return 0
	}
	return run.ID
}

// Discard drops the current run without touching storage.
func (s *Service) Discard() bool {
	return s.deps.Session.Discard()
}

// Get loads a recorded run.
func (s *Service) Get(id uint) (*core.Run, error) {
	return s.deps.Backend.GetRun(id)
}

// List returns recorded runs, newest first.
func (s *Service) List(limit int) ([]core.RunSummary, error) {
	return s.deps.Backend.ListRuns(limit)
}

// StateAt returns the sample of the current run shown at playback time t.
func (s *Service) StateAt(t float64) (core.SimulationState, error) {
	run, err := s.deps.Session.Current()
	if err != nil {
		return core.SimulationState{}, err
	}
	state, ok := playback.At(&run.Result, t)
	if !ok {
		return core.SimulationState{}, ErrEmptyTrajectory
	}
	return state, nil
}
