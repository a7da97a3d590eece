package processors

import (
	"fmt"
	"log/slog"
	"sort"

	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
)

type factory func(logger *slog.Logger) payload.Processor

var registry = map[string]factory{
	"identity":  func(*slog.Logger) payload.Processor { return Identity{} },
	"transcode": func(l *slog.Logger) payload.Processor { return &Transcode{Logger: l} },
	"splitter":  func(l *slog.Logger) payload.Processor { return &Splitter{Logger: l} },
}

// Names lists the registered processors, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named processor. Processors that log do so through
// logging.Named(loggerName) so their events can be captured; an empty
// loggerName uses the processor's own name.
func New(name, loggerName string) (payload.Processor, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor %q", name)
	}
	if loggerName == "" {
		loggerName = name
	}
	return f(logging.Named(loggerName)), nil
}
