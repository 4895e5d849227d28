package reconciler

import (
	"context"
	"fmt"

	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/internal/taskqueue"
	"github.com/giantswarm/locksmith/pkg/logging"
)

// HandleEvent reacts to one live notification. Nickname changes are
// corrected right away, title changes feed the title state machine, and
// new members are given an override before the target is reconciled.
//
// Only a failure that means the session is gone is returned, wrapping
// remote.ErrForceReconnect. Anything else is logged.
func (e *Engine) HandleEvent(ctx context.Context, ev remote.Event) error {
	switch ev.Type {
	case remote.EventNicknameChanged:
		e.onNicknameChanged(ev)
	case remote.EventTitleChanged:
		e.ObserveTitle(ev.ThreadID, ev.Title, FromEvent)
	case remote.EventMembersAdded, remote.EventThreadCreated:
		err := e.syncMembership(ctx, ev.ThreadID)
		if remote.IsDisconnect(err) {
			return fmt.Errorf("membership sync for %s: %v: %w", ev.ThreadID, err, remote.ErrForceReconnect)
		}
		if err != nil {
			logging.Warn("Reconciler", "Membership sync for %s failed: %v", ev.ThreadID, err)
		}
	default:
		logging.Debug("Reconciler", "Ignoring event %s in %s", ev.Type, ev.ThreadID)
	}
	return nil
}

func (e *Engine) onNicknameChanged(ev remote.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.records[ev.ThreadID]
	if rec == nil || !rec.Enabled || rec.CooldownActive || ev.MemberID == "" {
		return
	}

	kind := taskqueue.KindMemberNickname
	desired := rec.DesiredNickname(ev.MemberID)
	if ev.MemberID == e.operator {
		kind = taskqueue.KindOwnNickname
		desired = rec.Nickname
	}
	if desired == "" || ev.Nickname == desired {
		return
	}

	if e.enqueueCorrectionLocked(ev.ThreadID, ev.MemberID, kind, desired) {
		logging.Info("Reconciler", "Nickname of %s in %s changed to %q, correcting", ev.MemberID, ev.ThreadID, ev.Nickname)
	}
}

// syncMembership gives every participant of target without an override one
// carrying the record's nickname, then reconciles the target. Existing
// overrides are never replaced.
func (e *Engine) syncMembership(ctx context.Context, target string) error {
	if !e.isEnabled(target) {
		return nil
	}

	info, err := e.threadInfo(ctx, target)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}

	e.mu.Lock()
	rec := e.records[target]
	added := 0
	if rec != nil {
		if rec.NicknameOverrides == nil {
			rec.NicknameOverrides = make(map[string]string)
		}
		for _, member := range info.Participants {
			if member == e.operator {
				continue
			}
			if _, ok := rec.NicknameOverrides[member]; !ok {
				rec.NicknameOverrides[member] = rec.Nickname
				added++
			}
		}
	}
	e.mu.Unlock()

	if added > 0 {
		logging.Info("Reconciler", "Added %d members to the lock of %s", added, target)
		e.persistOrLog("membership sync")
	}
	e.Reconcile(ctx, target, info)
	return nil
}

func (e *Engine) isEnabled(target string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.records[target]
	return rec != nil && rec.Enabled
}
