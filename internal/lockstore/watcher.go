package lockstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/giantswarm/locksmith/pkg/logging"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reports edits made to the store file by something other than the
// Store itself, such as an operator adding a target by hand.
type Watcher struct {
	store    *Store
	debounce time.Duration
	onChange func(Records)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher returns a Watcher calling onChange with the freshly loaded
// records after each external edit. Bursts of events within debounce are
// collapsed into one reload.
func NewWatcher(store *Store, debounce time.Duration, onChange func(Records)) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{store: store, debounce: debounce, onChange: onChange}
}

// Run watches until ctx is cancelled. The directory is watched rather than
// the file, because atomic saves replace the file's inode.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.store.Path())
	if err := fw.Add(dir); err != nil {
		return err
	}
	logging.Debug("LockStore", "Watching %s for external edits", w.store.Path())

	defer w.stopTimer()

	name := filepath.Base(w.store.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Error("LockStore", err, "Store watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.store.Path())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Error("LockStore", err, "Failed to read edited store")
		}
		return
	}
	if w.store.isOwnWrite(data) {
		return
	}

	recs, err := w.store.decode(data)
	if err != nil {
		// Keep running on the in-memory state until the file is fixed.
		logging.Error("LockStore", err, "Ignoring external edit")
		return
	}
	logging.Info("LockStore", "Store edited externally, %d targets", len(recs))
	w.onChange(recs)
}
