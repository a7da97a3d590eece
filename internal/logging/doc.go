// Package logging assembles structured slog loggers and the scoped log
// capture used while a processor runs.
//
// It owns the console/JSON handlers and level plumbing, and exposes a
// process-wide registry of named loggers. Processors log through
// Named(name); the regression runner attaches a Capture to the same name for
// the duration of one processor invocation and receives the ordered list of
// simplified events when the capture stops. A capture only ever detaches the
// recorder it attached, so concurrent test cases observing different names
// never see each other's events.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same field names.
package logging
