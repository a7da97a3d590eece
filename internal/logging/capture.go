package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Event is a simplified log event: level and message only.
type Event struct {
	Level   string
	Message string
}

// Registry hands out named loggers and scoped captures over them.
type Registry struct {
	mu      sync.RWMutex
	base    slog.Handler
	entries map[string]*namedEntry
}

// NewRegistry creates a registry whose named loggers write to base.
func NewRegistry(base slog.Handler) *Registry {
	if base == nil {
		base = NoopHandler{}
	}
	return &Registry{base: base, entries: make(map[string]*namedEntry)}
}

var defaultRegistry = NewRegistry(nil)

// SetBaseHandler routes every named logger of the default registry to h.
func SetBaseHandler(h slog.Handler) { defaultRegistry.SetBase(h) }

// Named returns the default registry's logger called name.
func Named(name string) *slog.Logger { return defaultRegistry.Logger(name) }

// StartCapture begins recording events logged through Named(name).
func StartCapture(name string) *Capture { return defaultRegistry.StartCapture(name) }

// WithCapture runs fn while capturing name and returns the captured events.
// The capture is released on every exit path, panics included.
func WithCapture(name string, fn func() error) ([]Event, error) {
	return defaultRegistry.WithCapture(name, fn)
}

// SetBase replaces the handler every named logger writes to.
func (r *Registry) SetBase(h slog.Handler) {
	if h == nil {
		h = NoopHandler{}
	}
	r.mu.Lock()
	r.base = h
	r.mu.Unlock()
}

func (r *Registry) baseHandler() slog.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.base
}

func (r *Registry) entry(name string) *namedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		e = &namedEntry{name: name, registry: r}
		r.entries[name] = e
	}
	return e
}

// Logger returns the logger called name. Loggers with the same name share
// their captures.
func (r *Registry) Logger(name string) *slog.Logger {
	return slog.New(&namedHandler{entry: r.entry(name)}).With(String(FieldComponent, name))
}

// StartCapture attaches a new recorder to name.
func (r *Registry) StartCapture(name string) *Capture {
	e := r.entry(name)
	rec := &recorder{}
	e.attach(rec)
	return &Capture{entry: e, rec: rec}
}

// WithCapture runs fn inside a capture of name.
func (r *Registry) WithCapture(name string, fn func() error) (events []Event, err error) {
	c := r.StartCapture(name)
	defer func() {
		events = c.Stop()
	}()
	err = fn()
	return events, err
}

// Capture is one scoped acquisition of a named logger's events.
type Capture struct {
	entry *namedEntry
	rec   *recorder
	once  sync.Once
}

// Stop detaches the recorder and returns the events in emission order.
// Calling Stop more than once returns the same events.
func (c *Capture) Stop() []Event {
	c.once.Do(func() {
		c.entry.detach(c.rec)
	})
	return c.rec.snapshot()
}

type namedEntry struct {
	name      string
	registry  *Registry
	mu        sync.RWMutex
	recorders []*recorder
}

func (e *namedEntry) attach(rec *recorder) {
	e.mu.Lock()
	e.recorders = append(e.recorders, rec)
	e.mu.Unlock()
}

func (e *namedEntry) detach(rec *recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.recorders {
		if r == rec {
			e.recorders = append(e.recorders[:i:i], e.recorders[i+1:]...)
			return
		}
	}
}

func (e *namedEntry) active() []*recorder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*recorder(nil), e.recorders...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(record slog.Record) {
	r.mu.Lock()
	r.events = append(r.events, Event{
		Level:   strings.ToUpper(record.Level.String()),
		Message: record.Message,
	})
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// namedHandler resolves the base handler and the active recorders at log
// time, so captures started after a logger was created still see its output.
type namedHandler struct {
	entry *namedEntry
	wrap  []func(slog.Handler) slog.Handler
}

func (h *namedHandler) base() slog.Handler {
	handler := h.entry.registry.baseHandler()
	for _, w := range h.wrap {
		handler = w(handler)
	}
	return handler
}

func (h *namedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if len(h.entry.active()) > 0 {
		return true
	}
	return h.entry.registry.baseHandler().Enabled(ctx, level)
}

func (h *namedHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, rec := range h.entry.active() {
		rec.record(record)
	}
	base := h.entry.registry.baseHandler()
	if !base.Enabled(ctx, record.Level) {
		return nil
	}
	return h.base().Handle(ctx, record.Clone())
}

func (h *namedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *namedHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *namedHandler) with(w func(slog.Handler) slog.Handler) slog.Handler {
	wrap := append(append([]func(slog.Handler) slog.Handler(nil), h.wrap...), w)
	return &namedHandler{entry: h.entry, wrap: wrap}
}
