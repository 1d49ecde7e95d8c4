// Package dispatcher fans service events out to named subscribers. A
// subscriber runs inline, or on its own worker behind a bounded queue.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/waterrocket/simulator/internal/dispatcher"

// ErrNoSubscribers is returned by Dispatch for a command nobody listens to.
var ErrNoSubscribers = errors.New("no subscribers")

// ErrQueueFull is returned when a non-blocking subscriber queue is full.
var ErrQueueFull = errors.New("queue full")

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// Event is a command raised inside the service, carrying an arbitrary payload.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// NewEvent stamps a command and payload with the current time.
func NewEvent(command string, payload any) Event {
	return Event{Command: command, Payload: payload, Timestamp: time.Now()}
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered runs the subscriber on its own worker with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered subscriber block when its queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging around the subscriber.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type subscriber struct {
	name     string
	handle   HandlerFunc
	queue    chan Event // nil when inline
	blocking bool
}

// Dispatcher routes events to every subscriber of their command, in
// subscription order.
type Dispatcher struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu      sync.RWMutex
	subs    map[string][]*subscriber
	workers sync.WaitGroup
	closed  bool
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		subs:   make(map[string][]*subscriber),
		logger: logger,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events waiting per subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, subs := range d.subs {
				for _, s := range subs {
					if s.queue == nil {
						continue
					}
					o.ObserveInt64(d.queueSize, int64(len(s.queue)), metric.WithAttributes(
						attribute.String("command", cmd),
						attribute.String("subscriber", s.name),
					))
				}
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events handled by subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to a full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Subscribe adds a named subscriber for command. Names must be unique per
// command.
func (d *Dispatcher) Subscribe(command, name string, h HandlerFunc, opts ...Option) error {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	for _, s := range d.subs[command] {
		if s.name == name {
			return fmt.Errorf("subscriber %q already registered for %s", name, command)
		}
	}

	if cfg.blocking && cfg.bufferSize <= 0 {
		return fmt.Errorf("subscriber %q: Blocking requires Buffered", name)
	}

	if cfg.logged {
		h = d.withLogging(command, name, h)
	}
	s := &subscriber{name: name, handle: h, blocking: cfg.blocking}
	if cfg.bufferSize > 0 {
		s.queue = make(chan Event, cfg.bufferSize)
		d.startWorker(command, s)
	}

	d.subs[command] = append(d.subs[command], s)
	return nil
}

// Dispatch hands the event to every subscriber of its command. Inline
// subscribers run before Dispatch returns; buffered ones are only queued.
// Failures of individual subscribers are joined into the returned error and
// do not stop the others.
func (d *Dispatcher) Dispatch(e Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	subs := d.subs[e.Command]
	if len(subs) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSubscribers, e.Command)
	}

	var errs []error
	for _, s := range subs {
		if err := d.deliver(e, s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// HasSubscribers reports whether anyone listens to command.
func (d *Dispatcher) HasSubscribers(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[command]) > 0
}

// Subscribers returns the subscriber names for command in delivery order.
func (d *Dispatcher) Subscribers(command string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.subs[command]))
	for _, s := range d.subs[command] {
		names = append(names, s.name)
	}
	return names
}

// Close stops accepting events and waits until every queued event has been
// handled. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, subs := range d.subs {
		for _, s := range subs {
			if s.queue != nil {
				close(s.queue)
			}
		}
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) deliver(e Event, s *subscriber) error {
	attrs := metric.WithAttributes(
		attribute.String("command", e.Command),
		attribute.String("subscriber", s.name),
	)

	if s.queue == nil {
		err := s.handle(e)
		d.processed.Add(context.Background(), 1, attrs)
		return err
	}

	if s.blocking {
		s.queue <- e
		return nil
	}
	select {
	case s.queue <- e:
		return nil
	default:
		d.dropped.Add(context.Background(), 1, attrs)
		return ErrQueueFull
	}
}

func (d *Dispatcher) startWorker(command string, s *subscriber) {
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("subscriber", s.name),
	)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range s.queue {
			if err := s.handle(e); err != nil {
				d.logger.Error("buffered subscriber failed", "command", command, "subscriber", s.name, "error", err)
			}
			d.processed.Add(context.Background(), 1, attrs)
		}
	}()
}

func (d *Dispatcher) withLogging(command, name string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "subscriber", name, "payload", fmt.Sprintf("%T", e.Payload))

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "subscriber", name, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "subscriber", name, "duration", time.Since(start))
		}

		return err
	}
}
