package reconciler

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/locksmith/internal/clock"
	"github.com/giantswarm/locksmith/internal/lockstore"
	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/pkg/logging"
)

// Engine converges observed nicknames and titles towards the lock records.
//
// All record state lives here, guarded by mu. Remote calls are made from
// tasks running on the per-target queues, never while mu is held.
type Engine struct {
	config Config

	mu        sync.Mutex
	records   lockstore.Records
	client    remote.Client
	lost      chan error
	operator  string
	queued    map[string]bool
	cooldowns map[string]*clock.Timer
	titles    map[string]*titleTracker
	cursor    int

	// saveMu orders snapshots and writes so a stale snapshot never
	// overwrites a newer one.
	saveMu sync.Mutex

	fetch singleflight.Group
}

// New returns an Engine owning records. Records loaded with an active
// cooldown get a fresh lift timer.
func New(config Config, records lockstore.Records) *Engine {
	config.applyDefaults()
	if records == nil {
		records = lockstore.Records{}
	}
	e := &Engine{
		config:    config,
		records:   records,
		operator:  config.OperatorID,
		queued:    make(map[string]bool),
		cooldowns: make(map[string]*clock.Timer),
		titles:    make(map[string]*titleTracker),
	}

	e.mu.Lock()
	for _, id := range records.Targets() {
		if records[id].CooldownActive {
			logging.Info("Reconciler", "Target %s is still cooling down, resuming timer", id)
			e.scheduleCooldownLiftLocked(id)
		}
	}
	e.mu.Unlock()
	return e
}

// Attach makes client the session used by tasks from now on. The operator
// defaults to the client's account when none is configured.
func (e *Engine) Attach(client remote.Client) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.client = client
	e.lost = make(chan error, 1)
	if e.config.OperatorID == "" {
		e.operator = client.CurrentUserID()
	}
	logging.Info("Reconciler", "Attached session, operator is %s", e.operator)
}

// Detach forgets the current session. Tasks that run before the next
// Attach fail with errNotAttached.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = nil
}

// Lost delivers the first disconnect a task of the attached session ran
// into. It is replaced on every Attach.
func (e *Engine) Lost() <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lost
}

// sessionLost reports err on Lost when client is still the attached
// session. Only the first report per session is kept.
func (e *Engine) sessionLost(client remote.Client, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != client || e.lost == nil {
		return
	}
	select {
	case e.lost <- fmt.Errorf("%v: %w", err, remote.ErrForceReconnect):
	default:
	}
}

func (e *Engine) currentClient() remote.Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client
}

// Records returns a deep copy of the current records.
func (e *Engine) Records() lockstore.Records {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.records.Clone()
}

// Flush writes the current records to the store.
func (e *Engine) Flush() error {
	return e.persist()
}

func (e *Engine) persist() error {
	if e.config.Store == nil {
		return nil
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	err := e.save()
	var edit *lockstore.ExternalEditError
	if errors.As(err, &edit) && edit.Records != nil {
		logging.Info("Reconciler", "Store was edited by hand, merging before saving")
		e.ApplyExternal(edit.Records)
		err = e.save()
	}
	if err != nil {
		return fmt.Errorf("persist lock records: %w", err)
	}
	return nil
}

func (e *Engine) save() error {
	e.mu.Lock()
	snapshot := e.records.Clone()
	e.mu.Unlock()
	return e.config.Store.Save(snapshot)
}

func (e *Engine) persistOrLog(reason string) {
	if err := e.persist(); err != nil {
		logging.Error("Reconciler", err, "Failed to save records after %s", reason)
	}
}

// ApplyExternal merges records edited outside the agent. Desired-state
// fields are taken from recs; change counts and cooldowns stay as tracked
// in memory. Targets missing from recs are dropped.
func (e *Engine) ApplyExternal(recs lockstore.Records) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range e.records {
		if _, ok := recs[id]; !ok {
			logging.Info("Reconciler", "Target %s removed from store", id)
			delete(e.records, id)
			delete(e.titles, id)
			if t := e.cooldowns[id]; t != nil {
				t.Stop()
				delete(e.cooldowns, id)
			}
		}
	}

	for _, id := range recs.Targets() {
		incoming := recs[id]
		current, ok := e.records[id]
		if !ok {
			logging.Info("Reconciler", "Target %s added to store", id)
			e.records[id] = incoming.Clone()
			if incoming.CooldownActive {
				e.scheduleCooldownLiftLocked(id)
			}
			continue
		}

		if current.LockedTitle != incoming.LockedTitle || current.TitleLockEnabled != incoming.TitleLockEnabled {
			if tr := e.titles[id]; tr == nil || tr.state != TitleRevertInProgress {
				delete(e.titles, id)
			}
		}

		updated := incoming.Clone()
		updated.ChangeCount = current.ChangeCount
		updated.CooldownActive = current.CooldownActive
		e.records[id] = updated
	}
}

// Summary reports counts for health output.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Summary{
		Attached:      e.client != nil,
		OperatorID:    e.operator,
		Targets:       len(e.records),
		QueuedMembers: len(e.queued),
	}
	for _, rec := range e.records {
		if rec.Enabled {
			s.Enabled++
		}
		if rec.TitleLockEnabled {
			s.TitleLocked++
		}
		if rec.CooldownActive {
			s.InCooldown++
		}
	}
	for _, tr := range e.titles {
		switch tr.state {
		case TitleDiverged:
			s.TitlesDiverged++
		case TitleRevertInProgress:
			s.RevertsInFlight++
		}
	}
	return s
}

// targetsWhere returns the sorted IDs of records matching keep.
func (e *Engine) targetsWhere(keep func(*lockstore.LockRecord) bool) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []string
	for id, rec := range e.records {
		if keep(rec) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
