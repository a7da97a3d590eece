package config

const (
	defaultFixturesDir = "testdata"
	defaultLogDir      = ""
	defaultKFFDB       = "~/.local/share/goldcheck/kff.db"
	defaultPolicy      = "default"
	defaultProcessor   = "identity"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			FixturesDir: defaultFixturesDir,
			LogDir:      defaultLogDir,
			KFFDB:       defaultKFFDB,
		},
		Run: Run{
			Policy:    defaultPolicy,
			Processor: defaultProcessor,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
