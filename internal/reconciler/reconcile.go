package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/giantswarm/locksmith/internal/clock"
	"github.com/giantswarm/locksmith/internal/lockstore"
	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/internal/taskqueue"
	"github.com/giantswarm/locksmith/pkg/logging"
)

func queueKey(target, member string) string {
	return target + "/" + member
}

// Reconcile compares one target's observed state with its record and
// enqueues a correction for every nickname that differs. The operator's own
// nickname is enqueued first. It returns the number of tasks enqueued.
//
// Nothing is enqueued for a disabled target or one in cooldown, nor for a
// member that already has a correction waiting.
func (e *Engine) Reconcile(ctx context.Context, target string, info *remote.ThreadInfo) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.records[target]
	if rec == nil || !rec.Enabled || rec.CooldownActive || info == nil {
		return 0
	}

	enqueued := 0
	op := e.operator
	if op != "" && isParticipant(info, op) && info.NicknameOf(op) != rec.Nickname {
		if e.enqueueCorrectionLocked(target, op, taskqueue.KindOwnNickname, rec.Nickname) {
			enqueued++
		}
	}

	for _, member := range info.Participants {
		if member == op {
			continue
		}
		desired := rec.DesiredNickname(member)
		if desired == "" || info.NicknameOf(member) == desired {
			continue
		}
		if e.enqueueCorrectionLocked(target, member, taskqueue.KindMemberNickname, desired) {
			enqueued++
		}
	}

	if enqueued > 0 {
		logging.Info("Reconciler", "Queued %d nickname corrections for %s", enqueued, target)
	}
	return enqueued
}

func isParticipant(info *remote.ThreadInfo, member string) bool {
	for _, p := range info.Participants {
		if p == member {
			return true
		}
	}
	_, ok := info.Nicknames[member]
	return ok
}

func (e *Engine) enqueueCorrectionLocked(target, member string, kind taskqueue.Kind, desired string) bool {
	key := queueKey(target, member)
	if e.queued[key] {
		return false
	}

	task := taskqueue.NewTask(target, kind, fmt.Sprintf("%s -> %q", member, desired), func(ctx context.Context) error {
		return e.applyNickname(ctx, target, member)
	})
	if !e.config.Queues.Enqueue(task) {
		return false
	}
	e.queued[key] = true
	return true
}

// applyNickname is the body of a correction task. It re-reads the record
// at execution time, so a target that entered cooldown or was disabled in
// the meantime makes no remote call.
func (e *Engine) applyNickname(ctx context.Context, target, member string) error {
	e.mu.Lock()
	delete(e.queued, queueKey(target, member))
	rec := e.records[target]
	if rec == nil || !rec.Enabled || rec.CooldownActive {
		e.mu.Unlock()
		e.config.Metrics.correction("skipped")
		return nil
	}
	desired := rec.DesiredNickname(member)
	if member == e.operator {
		desired = rec.Nickname
	}
	client := e.client
	e.mu.Unlock()

	if client == nil {
		return errNotAttached
	}
	if err := client.ChangeNickname(ctx, desired, target, member); err != nil {
		e.config.Metrics.correction("failed")
		if remote.IsDisconnect(err) {
			e.sessionLost(client, err)
		}
		return fmt.Errorf("set nickname of %s in %s: %w", member, target, err)
	}
	e.config.Metrics.correction("applied")

	e.mu.Lock()
	rec = e.records[target]
	if rec == nil {
		e.mu.Unlock()
		return nil
	}
	rec.ChangeCount++
	count := rec.ChangeCount
	if count >= e.config.NicknameChangeLimit && !rec.CooldownActive {
		rec.CooldownActive = true
		e.scheduleCooldownLiftLocked(target)
		e.config.Metrics.cooldownStarted()
		logging.Warn("Reconciler", "Target %s reached %d corrections, cooling down for %s",
			target, count, e.config.NicknameCooldown)
	}
	e.mu.Unlock()

	logging.Info("Reconciler", "Set nickname of %s in %s to %q (%d)", member, target, desired, count)
	e.persistOrLog("nickname correction")

	_ = clock.Sleep(ctx, e.config.Clock, e.config.Pacing.NextDelay(count))
	return nil
}

// scheduleCooldownLiftLocked arms the timer that ends target's cooldown.
func (e *Engine) scheduleCooldownLiftLocked(target string) {
	if t := e.cooldowns[target]; t != nil {
		t.Stop()
	}
	e.cooldowns[target] = e.config.Clock.AfterFunc(e.config.NicknameCooldown, func() {
		e.liftCooldown(target)
	})
}

func (e *Engine) liftCooldown(target string) {
	e.mu.Lock()
	delete(e.cooldowns, target)
	rec := e.records[target]
	if rec == nil {
		e.mu.Unlock()
		return
	}
	rec.CooldownActive = false
	rec.ChangeCount = 0
	e.mu.Unlock()

	logging.Info("Reconciler", "Cooldown lifted for %s", target)
	e.persistOrLog("cooldown")
}

// threadInfo fetches a target's state. Concurrent fetches of the same
// target share one remote call.
func (e *Engine) threadInfo(ctx context.Context, target string) (*remote.ThreadInfo, error) {
	client := e.currentClient()
	if client == nil {
		return nil, errNotAttached
	}
	v, err, _ := e.fetch.Do(target, func() (interface{}, error) {
		return client.GetThreadInfo(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	return v.(*remote.ThreadInfo), nil
}

// ReconcileAll runs Reconcile for every enabled target in ID order, waiting
// a random TargetSpacing between targets. A target whose state cannot be
// fetched is skipped until the next pass, unless the failure means the
// session is gone: then the pass stops with remote.ErrForceReconnect.
func (e *Engine) ReconcileAll(ctx context.Context) error {
	targets := e.targetsWhere(func(r *lockstore.LockRecord) bool { return r.Enabled })
	logging.Debug("Reconciler", "Reconciliation pass over %d targets", len(targets))

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := e.threadInfo(ctx, target)
		switch {
		case errors.Is(err, errNotAttached):
			return err
		case remote.IsDisconnect(err):
			return fmt.Errorf("reconcile %s: %v: %w", target, err, remote.ErrForceReconnect)
		case err != nil:
			logging.Warn("Reconciler", "Skipping %s this pass: %v", target, err)
		default:
			e.Reconcile(ctx, target, info)
		}

		if i < len(targets)-1 {
			if err := clock.Sleep(ctx, e.config.Clock, e.config.Pacing.Jitter(e.config.TargetSpacing)); err != nil {
				return err
			}
		}
	}
	e.config.Metrics.passCompleted()
	return nil
}
