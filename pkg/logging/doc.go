// Package logging provides the subsystem logger used across locksmith.
//
// It is a thin layer over Go's standard slog package. Every entry carries a
// timestamp, a level tag and the name of the subsystem that produced it, so
// the output of a long-running agent can be filtered with ordinary text tools.
//
// # Usage
//
//	import "github.com/giantswarm/locksmith/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Session", "Logged in as %s", userID)
//	logging.Warn("LockStore", "Store file missing, starting empty")
//	logging.Error("Reconciler", err, "Nickname correction failed for %s", target)
//
// # Subsystems
//
//   - **Bootstrap**: process start-up and shutdown
//   - **Config**: configuration loading and validation
//   - **LockStore**: persistence of lock records
//   - **Credential**: session blob loading and snapshots
//   - **TaskQueue**: per-target task execution
//   - **Reconciler** / **TitleLock**: convergence of nicknames and titles
//   - **Session**: login, reconnect and supervision
//   - **Bridge**: the remote client
//   - **Server**: health and metrics endpoint
//
// # Thread Safety
//
// All functions may be called from any goroutine. InitForCLI may be called
// again to swap the output, which tests rely on.
package logging
