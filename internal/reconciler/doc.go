// Package reconciler converges the observed state of every locked group
// towards its lock record.
//
// An Engine owns the in-memory lock records. It compares thread state read
// from the remote service with the records and turns every difference into
// a task on the per-target queues:
//
//   - Reconcile and ReconcileAll correct nicknames, the operator's own
//     nickname first. Every applied correction counts towards the target's
//     change limit; reaching it starts a cooldown during which the target
//     is left alone.
//   - ObserveTitle and PollTitles drive the title lock. A changed title is
//     tolerated for a grace window and reverted once a poll still sees it.
//   - HandleEvent reacts to live notifications.
//   - SendKeepAlive keeps the session looking active.
//
// A failure meaning the session is gone is never just logged. Passes and
// HandleEvent return it wrapping remote.ErrForceReconnect, and tasks report
// it on Lost.
//
// The engine never holds its lock across a remote call. Every state change
// is written through the configured Persister. A hand edit that Save finds
// pending is merged before the write.
package reconciler
