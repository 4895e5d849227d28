package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/giantswarm/locksmith/internal/config"
	"github.com/giantswarm/locksmith/pkg/logging"
)

// Application bootstraps and runs the agent.
//
// Initialization happens in two phases:
//  1. Bootstrap: load configuration, set up logging, build services
//  2. Execution: run the session, the store watcher and the health server
//
// Example usage:
//
//	cfg := app.NewConfig(false, ".", "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads the configuration, initializes logging and builds
// every service. A corrupt lock store is not fatal; the agent starts with
// no targets.
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	logging.InitForCLI(logging.LevelInfo, logOutput)

	locksmithCfg, err := config.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", cfg.ConfigPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", cfg.ConfigPath, err)
	}
	if cfg.DataDir != "" {
		locksmithCfg.DataDir = cfg.DataDir
	}

	level, err := logging.ParseLevel(locksmithCfg.LogLevel)
	if err != nil {
		logging.Warn("Bootstrap", "%v, using info", err)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, logOutput)
	logging.Info("Bootstrap", "Loaded configuration, data directory is %s", locksmithCfg.DataDir)

	cfg.LocksmithConfig = &locksmithCfg

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Run executes the application until ctx is cancelled or a fatal error
// occurs. Session loss is not fatal.
func (a *Application) Run(ctx context.Context) error {
	return runAgent(ctx, a.services)
}

// Services exposes the initialized services.
func (a *Application) Services() *Services {
	return a.services
}
