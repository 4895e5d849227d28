package lockstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeRecorder struct {
	mu    sync.Mutex
	calls []Records
}

func (r *changeRecorder) record(recs Records) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recs)
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *changeRecorder) last() Records {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func startWatcher(t *testing.T, s *Store, rec *changeRecorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWatcher(s, 20*time.Millisecond, rec.record)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// give fsnotify a moment to register the watch
	time.Sleep(50 * time.Millisecond)
}

func TestWatcher_ReportsExternalEdit(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load()
	require.NoError(t, err)

	rec := &changeRecorder{}
	startWatcher(t, s, rec)

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"t9": {"enabled": true, "nick": "x"}}`), 0o644))

	require.Eventually(t, func() bool {
		if rec.count() == 0 {
			return false
		}
		_, ok := rec.last()["t9"]
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, rec.last()["t9"].Enabled)
	assert.Equal(t, "x", rec.last()["t9"].Nickname)
}

func TestWatcher_IgnoresOwnSaves(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load()
	require.NoError(t, err)

	rec := &changeRecorder{}
	startWatcher(t, s, rec)

	require.NoError(t, s.Save(Records{"t1": {Nickname: "n", NicknameOverrides: map[string]string{}}}))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestWatcher_IgnoresCorruptEdit(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load()
	require.NoError(t, err)

	rec := &changeRecorder{}
	startWatcher(t, s, rec)

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"t1": `), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestWatcher_SaveInsideDebounceKeepsEdit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Records{"a": {Enabled: true, Nickname: "x", NicknameOverrides: map[string]string{}}}))

	rec := &changeRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWatcher(s, 200*time.Millisecond, rec.record)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"a": {"enabled": true, "nick": "x"}, "b": {"enabled": true, "nick": "y"}}`), 0o644))
	time.Sleep(50 * time.Millisecond)

	err := s.Save(Records{"a": {Enabled: true, Nickname: "x", ChangeCount: 1, NicknameOverrides: map[string]string{}}})
	var pending *ExternalEditError
	require.True(t, errors.As(err, &pending))
	assert.Contains(t, pending.Records, "b")

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Contains(t, loaded, "b", "hand edit survives the save")
}
