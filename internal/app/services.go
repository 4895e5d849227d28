package app

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/giantswarm/locksmith/internal/admission"
	"github.com/giantswarm/locksmith/internal/clock"
	"github.com/giantswarm/locksmith/internal/config"
	"github.com/giantswarm/locksmith/internal/credential"
	"github.com/giantswarm/locksmith/internal/lockstore"
	"github.com/giantswarm/locksmith/internal/pacing"
	"github.com/giantswarm/locksmith/internal/reconciler"
	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/internal/remote/bridge"
	"github.com/giantswarm/locksmith/internal/server"
	"github.com/giantswarm/locksmith/internal/session"
	"github.com/giantswarm/locksmith/internal/taskqueue"
	"github.com/giantswarm/locksmith/pkg/logging"
)

// Services holds every component of a running agent.
//
// They are built bottom-up: store and records first, then the admission
// limiter and queues, then the engine that uses them, and finally the
// session manager, store watcher and health server that drive it.
type Services struct {
	Store    *lockstore.Store
	Limiter  *admission.Limiter
	Queues   *taskqueue.Queues
	Engine   *reconciler.Engine
	Session  *session.Manager
	Watcher  *lockstore.Watcher
	Registry *prometheus.Registry

	// Server is nil when the health server is disabled.
	Server *server.HealthServer
}

// InitializeServices creates and wires all services for cfg.
func InitializeServices(cfg *Config) (*Services, error) {
	lc := cfg.LocksmithConfig
	if lc == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	clk := clock.Real()

	store := lockstore.New(lc.StorePath(), lc.DefaultNickname)
	records, err := store.LoadOrEmpty()
	if err != nil {
		return nil, fmt.Errorf("load lock store: %w", err)
	}
	logging.Info("Bootstrap", "Loaded %d targets from %s", len(records), store.Path())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := reconciler.NewMetrics(registry)

	limiter := admission.New(lc.Reconcile.MaxConcurrent)
	queues := taskqueue.New(taskqueue.Config{
		Gate:     limiter,
		Clock:    clk,
		Pause:    lc.Pacing.TaskPause,
		Observer: metrics,
	})

	policy := pacing.NewPolicy(
		pacing.Band{Min: lc.Pacing.FastMin, Max: lc.Pacing.FastMax},
		pacing.Band{Min: lc.Pacing.SlowMin, Max: lc.Pacing.SlowMax},
	)
	engine := reconciler.New(reconciler.Config{
		Store:                 store,
		Queues:                queues,
		Pacing:                policy,
		Clock:                 clk,
		OperatorID:            lc.OperatorID,
		NicknameChangeLimit:   lc.Reconcile.NicknameChangeLimit,
		NicknameCooldown:      lc.Reconcile.NicknameCooldown,
		TargetSpacing:         pacing.Band{Min: lc.Pacing.TargetSpacingMin, Max: lc.Pacing.TargetSpacingMax},
		RevertGrace:           lc.TitleLock.RevertGrace,
		MaxTitleChecksPerTick: lc.TitleLock.MaxChecksPerTick,
		TypingSpacing:         lc.Session.TypingSpacing,
		Metrics:               metrics,
	}, records)
	reconciler.RegisterStateGauges(registry, engine, limiter, queues)

	var dialer remote.Dialer = cfg.Dialer
	if dialer == nil {
		dialer = bridge.NewDialer(bridge.Config{
			URL:      lc.Bridge.URL,
			Timeout:  lc.Bridge.RequestTimeout,
			RetryMax: lc.Bridge.RetryMax,
		})
	}

	manager := session.NewManager(session.Config{
		Dialer:             dialer,
		Credentials:        credential.Source{Inline: lc.CredentialBlob, Path: lc.CredentialPath(), Since: clk.Now()},
		SnapshotPath:       lc.CredentialPath(),
		Engine:             engine,
		Clock:              clk,
		Retry:              session.RetryPolicy{Step: lc.Session.BackoffStep, Max: lc.Session.MaxBackoff},
		ReconcileInterval:  lc.Reconcile.Interval,
		TitleCheckInterval: lc.TitleLock.CheckInterval,
		TypingInterval:     lc.Session.TypingInterval,
		SnapshotInterval:   lc.Session.SnapshotInterval,
	})

	services := &Services{
		Store:    store,
		Limiter:  limiter,
		Queues:   queues,
		Engine:   engine,
		Session:  manager,
		Watcher:  lockstore.NewWatcher(store, 0, engine.ApplyExternal),
		Registry: registry,
	}
	if lc.Server.Enabled {
		addr := net.JoinHostPort(lc.Server.Host, strconv.Itoa(lc.Server.Port))
		services.Server = server.New(addr, engine, registry)
	}
	return services, nil
}

// Validate checks what can be checked without logging in: the lock store
// parses and a credential blob is available. A missing store is fine and
// is not created.
func Validate(lc config.LocksmithConfig) (lockstore.Records, []error) {
	var problems []error

	records := lockstore.Records{}
	if _, err := os.Stat(lc.StorePath()); err == nil {
		store := lockstore.New(lc.StorePath(), lc.DefaultNickname)
		if records, err = store.Load(); err != nil {
			problems = append(problems, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		problems = append(problems, err)
	}

	source := credential.Source{Inline: lc.CredentialBlob, Path: lc.CredentialPath()}
	if _, err := source.Load(); err != nil {
		problems = append(problems, err)
	}
	return records, problems
}
