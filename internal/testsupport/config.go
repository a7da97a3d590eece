package testsupport

import (
	"path/filepath"
	"testing"

	"goldcheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.FixturesDir = filepath.Join(base, "fixtures")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.KFFDB = filepath.Join(base, "kff", "kff.db")

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	MkdirAll(t, cfg.Paths.FixturesDir)
	return &cfg
}

// WithPolicy sets the encoding policy.
func WithPolicy(policy string) ConfigOption {
	return func(c *config.Config) { c.Run.Policy = policy }
}

// WithProcessor selects the processor by name.
func WithProcessor(name string) ConfigOption {
	return func(c *config.Config) { c.Run.Processor = name }
}

// WithLoggerName enables log event capture for name.
func WithLoggerName(name string) ConfigOption {
	return func(c *config.Config) { c.Run.LoggerName = name }
}
