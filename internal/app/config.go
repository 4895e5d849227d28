package app

import (
	"io"

	"github.com/giantswarm/locksmith/internal/config"
	"github.com/giantswarm/locksmith/internal/remote"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of LOG_LEVEL.
	Debug bool

	// ConfigPath is the directory holding config.yaml and .env.
	ConfigPath string

	// DataDir overrides the configured data directory when set.
	DataDir string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// Dialer replaces the bridge dialer. Used by tests.
	Dialer remote.Dialer

	// Loaded configuration, set during bootstrap.
	LocksmithConfig *config.LocksmithConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath, dataDir string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		DataDir:    dataDir,
	}
}
