package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) has(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, msg := range l.messages {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

func mustSubscribe(t *testing.T, d *Dispatcher, command, name string, h HandlerFunc, opts ...Option) {
	t.Helper()
	if err := d.Subscribe(command, name, h, opts...); err != nil {
		t.Fatalf("subscribe %s/%s: %v", command, name, err)
	}
}

func TestDispatcher_InlineSubscriber(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got any
	mustSubscribe(t, d, ":RUN:RECORDED:", "observer", func(e Event) error {
		got = e.Payload
		return nil
	})

	if err := d.Dispatch(NewEvent(":RUN:RECORDED:", 7)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("expected payload 7, got %v", got)
	}
}

func TestDispatcher_FansOutInOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var order []string
	for _, name := range []string{"metrics", "export", "audit"} {
		name := name
		mustSubscribe(t, d, ":RUN:RECORDED:", name, func(e Event) error {
			order = append(order, name)
			return nil
		})
	}

	if err := d.Dispatch(NewEvent(":RUN:RECORDED:", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "metrics,export,audit" {
		t.Errorf("unexpected delivery order %v", order)
	}
	if got := d.Subscribers(":RUN:RECORDED:"); strings.Join(got, ",") != "metrics,export,audit" {
		t.Errorf("unexpected subscribers %v", got)
	}
}

func TestDispatcher_FailureDoesNotStopOthers(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	mustSubscribe(t, d, ":CMD:", "broken", func(e Event) error { return errors.New("sink down") })
	mustSubscribe(t, d, ":CMD:", "healthy", func(e Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(NewEvent(":CMD:", nil))
	if err == nil || !strings.Contains(err.Error(), "broken: sink down") {
		t.Errorf("expected joined subscriber error, got %v", err)
	}
	if !called {
		t.Error("healthy subscriber was skipped")
	}
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Dispatch(Event{Command: ":UNKNOWN:"})
	if !errors.Is(err, ErrNoSubscribers) {
		t.Errorf("expected ErrNoSubscribers, got %v", err)
	}
}

func TestDispatcher_DuplicateName(t *testing.T) {
	d, _ := newTestDispatcher(t)

	h := func(e Event) error { return nil }
	mustSubscribe(t, d, ":CMD:", "a", h)
	if err := d.Subscribe(":CMD:", "a", h); err == nil {
		t.Error("expected duplicate subscriber to be rejected")
	}
	// the same name on another command is fine
	mustSubscribe(t, d, ":OTHER:", "a", h)
}

func TestDispatcher_BlockingRequiresBuffer(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Subscribe(":CMD:", "a", func(e Event) error { return nil }, Blocking())
	if err == nil {
		t.Error("expected Blocking without Buffered to be rejected")
	}
	if d.HasSubscribers(":CMD:") {
		t.Error("rejected subscriber must not be registered")
	}
}

func TestDispatcher_BufferedSubscriber(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	mustSubscribe(t, d, ":BUFFERED:", "worker", func(e Event) error {
		processed.Add(1)
		wg.Done()
		return nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		if err := d.Dispatch(Event{Command: ":BUFFERED:"}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	mustSubscribe(t, d, ":FULL:", "slow", func(e Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}, Buffered(2))

	d.Dispatch(Event{Command: ":FULL:"}) // being processed
	<-started
	d.Dispatch(Event{Command: ":FULL:"}) // queued
	d.Dispatch(Event{Command: ":FULL:"}) // queued

	err := d.Dispatch(Event{Command: ":FULL:"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	mustSubscribe(t, d, ":BLOCKING:", "slow", func(e Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: ":BLOCKING:"})
	<-started
	d.Dispatch(Event{Command: ":BLOCKING:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
	<-done
}

func TestDispatcher_LoggedSubscriber(t *testing.T) {
	d, logger := newTestDispatcher(t)

	mustSubscribe(t, d, ":LOGGED:", "observer", func(e Event) error { return nil }, Logged())
	d.Dispatch(NewEvent(":LOGGED:", []string{"a", "b"}))

	if !logger.has("DEBUG: handling event") || !logger.has("DEBUG: event complete") {
		t.Errorf("expected start and completion logs, got %v", logger.messages)
	}
}

func TestDispatcher_LoggedSubscriberError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	mustSubscribe(t, d, ":ERROR:", "broken", func(e Event) error {
		return fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Command: ":ERROR:"})

	if !logger.has("ERROR: event failed") {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasSubscribers(t *testing.T) {
	d, _ := newTestDispatcher(t)

	mustSubscribe(t, d, ":EXISTS:", "a", func(e Event) error { return nil })

	if !d.HasSubscribers(":EXISTS:") {
		t.Error("expected subscribers to exist")
	}
	if d.HasSubscribers(":NOT_EXISTS:") {
		t.Error("expected no subscribers")
	}
}

func TestDispatcher_MixedInlineAndBuffered(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var inline, buffered atomic.Int32
	mustSubscribe(t, d, ":MIXED:", "inline", func(e Event) error {
		inline.Add(1)
		return nil
	})
	mustSubscribe(t, d, ":MIXED:", "queued", func(e Event) error {
		buffered.Add(1)
		return nil
	}, Buffered(10), Logged())

	for i := 0; i < 4; i++ {
		if err := d.Dispatch(NewEvent(":MIXED:", i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if inline.Load() != 4 {
		t.Errorf("inline subscriber should have run before Dispatch returned, got %d", inline.Load())
	}

	d.Close()

	if buffered.Load() != 4 {
		t.Errorf("expected 4 buffered events after close, got %d", buffered.Load())
	}
	if !logger.has("DEBUG: event complete") {
		t.Error("expected logged buffered subscriber")
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	mustSubscribe(t, d, ":DRAIN:", "slow", func(e Event) error {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		if err := d.Dispatch(Event{Command: ":DRAIN:"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	d.Close()
	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected 5 processed after close, got %d", processed.Load())
	}
}

func TestDispatcher_ClosedRejectsWork(t *testing.T) {
	d, _ := newTestDispatcher(t)

	mustSubscribe(t, d, ":CMD:", "a", func(e Event) error { return nil }, Buffered(1))
	d.Close()

	if err := d.Dispatch(Event{Command: ":CMD:"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Dispatch, got %v", err)
	}
	if err := d.Subscribe(":CMD:", "b", func(e Event) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Subscribe, got %v", err)
	}
}

func TestDispatcher_BufferedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	mustSubscribe(t, d, ":FAILS:", "export", func(e Event) error {
		return fmt.Errorf("export failed")
	}, Buffered(1))

	d.Dispatch(Event{Command: ":FAILS:"})
	d.Close()

	if !logger.has("ERROR: buffered subscriber failed") {
		t.Errorf("expected buffered failure to be logged, got %v", logger.messages)
	}
}
