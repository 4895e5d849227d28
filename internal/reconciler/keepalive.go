package reconciler

import (
	"context"
	"fmt"

	"github.com/giantswarm/locksmith/internal/clock"
	"github.com/giantswarm/locksmith/internal/lockstore"
	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/pkg/logging"
)

// SendKeepAlive sends a typing indicator to every locked target, spaced by
// TypingSpacing. A disconnect reported by the remote service is returned
// wrapping remote.ErrForceReconnect so the session can be restarted.
func (e *Engine) SendKeepAlive(ctx context.Context) error {
	client := e.currentClient()
	if client == nil {
		return errNotAttached
	}

	targets := e.targetsWhere(func(r *lockstore.LockRecord) bool {
		return r.Enabled || r.TitleLockEnabled
	})
	for i, target := range targets {
		if i > 0 {
			if err := clock.Sleep(ctx, e.config.Clock, e.config.TypingSpacing); err != nil {
				return err
			}
		}
		err := client.SendTypingIndicator(ctx, target)
		if err == nil {
			continue
		}
		if remote.IsDisconnect(err) {
			return fmt.Errorf("typing indicator for %s: %w", target, remote.ErrForceReconnect)
		}
		logging.Warn("Session", "Typing indicator for %s failed: %v", target, err)
	}
	return nil
}
