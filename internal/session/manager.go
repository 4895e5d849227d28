package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/locksmith/internal/clock"
	"github.com/giantswarm/locksmith/internal/credential"
	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/pkg/logging"
)

const shutdownSnapshotTimeout = 10 * time.Second

// Engine is the part of the reconciler a session drives.
// *reconciler.Engine satisfies it.
type Engine interface {
	Attach(client remote.Client)
	Detach()
	ReconcileAll(ctx context.Context) error
	PollTitles(ctx context.Context) error
	SendKeepAlive(ctx context.Context) error
	HandleEvent(ctx context.Context, ev remote.Event) error
	// Lost reports a disconnect seen by a background task of the
	// attached session.
	Lost() <-chan error
}

// Config wires a Manager.
type Config struct {
	Dialer       remote.Dialer
	Credentials  credential.Source
	SnapshotPath string
	Engine       Engine
	Clock        clock.Clock
	Retry        RetryPolicy

	ReconcileInterval  time.Duration
	TitleCheckInterval time.Duration
	TypingInterval     time.Duration
	SnapshotInterval   time.Duration

	// Notify reports service state to the init system. Defaults to
	// sd_notify, which is a no-op outside systemd.
	Notify func(state string)
}

// Manager keeps one remote session alive, logging in again whenever the
// session fails or is lost.
type Manager struct {
	config Config
}

// NewManager returns a Manager. Zero intervals fall back to the defaults
// the agent ships with.
func NewManager(config Config) *Manager {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Retry.Step <= 0 || config.Retry.Max <= 0 {
		config.Retry = DefaultRetryPolicy
	}
	if config.ReconcileInterval <= 0 {
		config.ReconcileInterval = 5 * time.Minute
	}
	if config.TitleCheckInterval <= 0 {
		config.TitleCheckInterval = time.Minute
	}
	if config.TypingInterval <= 0 {
		config.TypingInterval = 10 * time.Minute
	}
	if config.SnapshotInterval <= 0 {
		config.SnapshotInterval = 10 * time.Minute
	}
	if config.Notify == nil {
		config.Notify = func(state string) {
			if _, err := daemon.SdNotify(false, state); err != nil {
				logging.Debug("Session", "sd_notify failed: %v", err)
			}
		}
	}
	return &Manager{config: config}
}

// Run supervises sessions until ctx is cancelled. It never gives up: an
// invalid credential or a failed login is retried after Backoff.
func (m *Manager) Run(ctx context.Context) error {
	attempts := 0
	for {
		loggedIn, err := m.runOnce(ctx)
		if ctx.Err() != nil {
			m.config.Notify(daemon.SdNotifyStopping)
			return nil
		}
		if loggedIn {
			attempts = 0
		}
		attempts++

		delay := m.config.Retry.Backoff(attempts)
		var invalid *credential.InvalidSessionError
		switch {
		case errors.As(err, &invalid):
			logging.Warn("Session", "No usable session (%v), retrying in %s", err, delay)
		case err != nil:
			logging.Error("Session", err, "Session ended, reconnecting in %s (attempt %d)", delay, attempts)
		default:
			logging.Warn("Session", "Session ended, reconnecting in %s", delay)
		}
		m.config.Notify(fmt.Sprintf("STATUS=Reconnecting in %s", delay))

		if err := clock.Sleep(ctx, m.config.Clock, delay); err != nil {
			m.config.Notify(daemon.SdNotifyStopping)
			return nil
		}
	}
}

// runOnce logs in and serves one session until it fails or ctx ends.
// loggedIn reports whether login succeeded.
func (m *Manager) runOnce(ctx context.Context) (loggedIn bool, err error) {
	blob, err := m.config.Credentials.Load()
	if err != nil {
		return false, err
	}

	client, err := m.config.Dialer.Login(ctx, blob)
	if err != nil {
		return false, fmt.Errorf("login: %w", err)
	}
	logging.Info("Session", "Logged in as %s", client.CurrentUserID())

	defer func() {
		m.config.Engine.Detach()
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownSnapshotTimeout)
		defer cancel()
		m.snapshot(saveCtx, client)
		if cerr := client.Close(); cerr != nil {
			logging.Warn("Session", "Closing session: %v", cerr)
		}
	}()

	if err := client.SetOptions(ctx, remote.DefaultOptions); err != nil {
		return true, fmt.Errorf("set options: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	events, err := client.Listen(gctx)
	if err != nil {
		return true, fmt.Errorf("listen: %w", err)
	}

	m.config.Engine.Attach(client)
	m.config.Notify(daemon.SdNotifyReady)
	m.config.Notify("STATUS=Logged in as " + client.CurrentUserID())

	g.Go(func() error {
		if err := m.config.Engine.ReconcileAll(gctx); err != nil && gctx.Err() == nil {
			if remote.IsDisconnect(err) {
				return err
			}
			logging.Warn("Session", "Initial reconciliation incomplete: %v", err)
		}
		return m.every(gctx, "reconcile", m.config.ReconcileInterval, m.config.Engine.ReconcileAll)
	})
	g.Go(func() error {
		return m.every(gctx, "title poll", m.config.TitleCheckInterval, m.config.Engine.PollTitles)
	})
	g.Go(func() error {
		return m.every(gctx, "keep-alive", m.config.TypingInterval, m.config.Engine.SendKeepAlive)
	})
	g.Go(func() error {
		return m.every(gctx, "snapshot", m.config.SnapshotInterval, func(ctx context.Context) error {
			m.snapshot(ctx, client)
			return nil
		})
	})
	lost := m.config.Engine.Lost()
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-lost:
			return fmt.Errorf("task: %w", err)
		}
	})
	g.Go(func() error {
		for ev := range events {
			if err := m.config.Engine.HandleEvent(gctx, ev); remote.IsDisconnect(err) {
				return err
			}
		}
		if gctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("event stream closed: %w", remote.ErrForceReconnect)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return true, nil
	}
	return true, err
}

// every runs fn on each tick of interval. Errors that mean the session is
// gone end the loop; anything else is logged.
func (m *Manager) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	ticker := m.config.Clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := fn(ctx)
			switch {
			case err == nil, ctx.Err() != nil:
			case remote.IsDisconnect(err):
				return err
			default:
				logging.Warn("Session", "%s failed: %v", name, err)
			}
		}
	}
}

// snapshot writes the client's current credential blob to SnapshotPath.
func (m *Manager) snapshot(ctx context.Context, client remote.Client) {
	if m.config.SnapshotPath == "" {
		return
	}
	blob, err := client.SessionSnapshot(ctx)
	if err != nil {
		logging.Warn("Session", "Could not fetch session snapshot: %v", err)
		return
	}
	if err := credential.SaveSnapshot(m.config.SnapshotPath, blob); err != nil {
		logging.Error("Session", err, "Could not save session snapshot")
		return
	}
	logging.Debug("Session", "Session snapshot saved")
}
