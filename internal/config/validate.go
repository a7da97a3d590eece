package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.FixturesDir == "" {
		return errors.New("paths.fixtures_dir must be set")
	}
	return nil
}

func (c *Config) validateRun() error {
	switch c.Run.Policy {
	case "default", "sha256":
	default:
		return fmt.Errorf("run.policy: unsupported value %q (want default or sha256)", c.Run.Policy)
	}
	if c.Run.Strict && c.Run.Generate {
		return errors.New("run.strict and run.generate cannot both be enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "trace", "info", "warn", "warning", "error", "fatal":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
