package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRun(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.FixturesDir) == "" {
		c.Paths.FixturesDir = defaultFixturesDir
	}
	if c.Paths.FixturesDir, err = expandPath(strings.TrimSpace(c.Paths.FixturesDir)); err != nil {
		return fmt.Errorf("paths.fixtures_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.KFFDB, err = expandPath(strings.TrimSpace(c.Paths.KFFDB)); err != nil {
		return fmt.Errorf("paths.kff_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeRun() error {
	c.Run.Policy = strings.ToLower(strings.TrimSpace(c.Run.Policy))
	if c.Run.Policy == "" {
		c.Run.Policy = defaultPolicy
	}
	c.Run.LoggerName = strings.TrimSpace(c.Run.LoggerName)
	c.Run.Processor = strings.ToLower(strings.TrimSpace(c.Run.Processor))
	if c.Run.Processor == "" {
		c.Run.Processor = defaultProcessor
	}
	if value, ok := os.LookupEnv(GenerateEnv); ok && strings.TrimSpace(value) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", GenerateEnv, err)
		}
		c.Run.Generate = enabled
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
