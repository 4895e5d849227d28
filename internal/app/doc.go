// Package app bootstraps and runs the locksmith agent.
//
// # Components
//
//   - config.go: the runtime options the CLI passes in
//   - bootstrap.go: NewApplication loads configuration, sets up logging and
//     builds the services; Run executes them
//   - services.go: InitializeServices wires the lock store, admission
//     limiter, task queues, reconciliation engine, session manager, store
//     watcher, Prometheus registry and health server
//   - modes.go: runs the long-lived components under one errgroup and
//     performs the shutdown sequence
//
// # Shutdown
//
// Cancelling the context passed to Run stops every component. The session
// manager writes a final credential snapshot as the session is torn down,
// queued tasks are dropped, and the lock records are saved one last time.
//
// # Usage
//
//	cfg := app.NewConfig(debug, configPath, dataDir)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
