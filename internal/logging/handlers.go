package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func newFanout(handlers ...slog.Handler) fanout {
	f := make(fanout, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going past a failing handler and joins the errors.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// runStamp adds the id of the run being played back to every record.
// Nothing is added while there is no current run.
type runStamp struct {
	next    slog.Handler
	current func() uint
}

func (h runStamp) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h runStamp) Handle(ctx context.Context, r slog.Record) error {
	if id := h.current(); id != 0 {
		r.AddAttrs(slog.Uint64("run_id", uint64(id)))
	}
	return h.next.Handle(ctx, r)
}

func (h runStamp) WithAttrs(attrs []slog.Attr) slog.Handler {
	return runStamp{next: h.next.WithAttrs(attrs), current: h.current}
}

func (h runStamp) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return runStamp{next: h.next.WithGroup(name), current: h.current}
}
