package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/locksmith/internal/lockstore"
	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/internal/taskqueue"
	"github.com/giantswarm/locksmith/pkg/logging"
)

type titleTracker struct {
	state      TitleState
	detectedAt time.Time
}

// titleTransitions lists the allowed moves of the title state machine.
var titleTransitions = map[TitleState]map[TitleState]bool{
	TitleStable: {
		TitleDiverged: true,
	},
	TitleDiverged: {
		TitleStable:           true,
		TitleRevertInProgress: true,
	},
	TitleRevertInProgress: {
		TitleStable: true,
	},
}

func canTransition(from, to TitleState) bool {
	return titleTransitions[from][to]
}

// TitleStateOf reports where target sits in the title state machine.
func (e *Engine) TitleStateOf(target string) TitleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tr := e.titles[target]; tr != nil {
		return tr.state
	}
	return TitleStable
}

func (e *Engine) trackerLocked(target string) *titleTracker {
	tr := e.titles[target]
	if tr == nil {
		tr = &titleTracker{state: TitleStable}
		e.titles[target] = tr
	}
	return tr
}

func (e *Engine) moveLocked(target string, tr *titleTracker, to TitleState) bool {
	if !canTransition(tr.state, to) {
		return false
	}
	logging.Debug("TitleLock", "%s: %s -> %s", target, tr.state, to)
	tr.state = to
	return true
}

// ObserveTitle feeds one title reading into target's state machine.
//
// A reading that differs from the locked title marks the target Diverged
// and starts the grace window. A matching reading returns it to Stable. A
// revert is only scheduled by a poll reading taken once the grace window
// has elapsed; live events never schedule one on their own. Readings are
// ignored while a revert is in flight.
func (e *Engine) ObserveTitle(target, observed string, source Observation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.records[target]
	if rec == nil || !rec.TitleLockEnabled {
		delete(e.titles, target)
		return
	}

	tr := e.trackerLocked(target)
	matches := observed == rec.LockedTitle

	switch tr.state {
	case TitleStable:
		if !matches {
			e.moveLocked(target, tr, TitleDiverged)
			tr.detectedAt = e.config.Clock.Now()
			logging.Info("TitleLock", "Title of %s changed to %q, grace period %s", target, observed, e.config.RevertGrace)
		}
	case TitleDiverged:
		if matches {
			e.moveLocked(target, tr, TitleStable)
			logging.Info("TitleLock", "Title of %s is back to the locked value", target)
			return
		}
		if source != FromPoll || e.config.Clock.Now().Sub(tr.detectedAt) < e.config.RevertGrace {
			return
		}
		e.moveLocked(target, tr, TitleRevertInProgress)
		if !e.enqueueRevertLocked(target, rec.LockedTitle) {
			e.moveLocked(target, tr, TitleStable)
		}
	case TitleRevertInProgress:
	}
}

func (e *Engine) enqueueRevertLocked(target, title string) bool {
	task := taskqueue.NewTask(target, taskqueue.KindTitleRevert, fmt.Sprintf("title -> %q", title), func(ctx context.Context) error {
		return e.revertTitle(ctx, target, title)
	})
	return e.config.Queues.Enqueue(task)
}

func (e *Engine) revertTitle(ctx context.Context, target, title string) error {
	defer func() {
		e.mu.Lock()
		if tr := e.titles[target]; tr != nil {
			e.moveLocked(target, tr, TitleStable)
		}
		e.mu.Unlock()
	}()

	client := e.currentClient()
	if client == nil {
		return errNotAttached
	}
	if err := client.ChangeTitle(ctx, title, target); err != nil {
		e.config.Metrics.titleRevert("failed")
		if remote.IsDisconnect(err) {
			e.sessionLost(client, err)
		}
		return fmt.Errorf("revert title of %s: %w", target, err)
	}
	e.config.Metrics.titleRevert("applied")
	logging.Info("TitleLock", "Reverted title of %s to %q", target, title)
	return nil
}

// PollTitles reads the title of at most MaxTitleChecksPerTick title-locked
// targets, continuing where the previous tick stopped. Targets with a
// revert in flight are passed over but still use up a slot.
func (e *Engine) PollTitles(ctx context.Context) error {
	targets := e.targetsWhere(func(r *lockstore.LockRecord) bool { return r.TitleLockEnabled })
	if len(targets) == 0 {
		return nil
	}

	n := min(e.config.MaxTitleChecksPerTick, len(targets))
	e.mu.Lock()
	start := e.cursor % len(targets)
	e.cursor = (start + n) % len(targets)
	e.mu.Unlock()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := targets[(start+i)%len(targets)]
		if e.TitleStateOf(target) == TitleRevertInProgress {
			continue
		}

		info, err := e.threadInfo(ctx, target)
		if remote.IsDisconnect(err) {
			return fmt.Errorf("read title of %s: %v: %w", target, err, remote.ErrForceReconnect)
		}
		if err != nil {
			logging.Warn("TitleLock", "Could not read title of %s: %v", target, err)
			continue
		}
		e.ObserveTitle(target, info.Title, FromPoll)
	}
	return nil
}
