package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/locksmith/pkg/logging"
)

// runAgent runs the session manager, the store watcher and the health
// server until ctx is cancelled. On the way out the task queues are closed
// and the lock records are written one last time. The session manager
// writes its credential snapshot as the session is torn down.
func runAgent(ctx context.Context, services *Services) error {
	logging.Info("Bootstrap", "Starting agent")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.Session.Run(gctx)
	})
	g.Go(func() error {
		if err := services.Watcher.Run(gctx); err != nil {
			logging.Error("LockStore", err, "Store watcher stopped, external edits will not be picked up")
		}
		return nil
	})
	if services.Server != nil {
		g.Go(func() error {
			return services.Server.Run(gctx)
		})
	}

	err := g.Wait()

	logging.Info("Bootstrap", "Shutting down")
	services.Queues.Close()
	if ferr := services.Engine.Flush(); ferr != nil {
		logging.Error("Bootstrap", ferr, "Failed to save lock records on shutdown")
		err = errors.Join(err, ferr)
	}
	logging.Info("Bootstrap", "Stopped")
	return err
}
