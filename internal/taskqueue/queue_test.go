package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/locksmith/internal/admission"
	"github.com/giantswarm/locksmith/internal/clock"
)

type recorder struct {
	mu  sync.Mutex
	ran []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func newQueues(n int, c clock.Clock, pause time.Duration) *Queues {
	return New(Config{Gate: admission.New(n), Clock: c, Pause: pause})
}

func TestQueues_FIFOAndNoOverlapPerTarget(t *testing.T) {
	q := newQueues(4, clock.Real(), 0)
	defer q.Close()

	rec := &recorder{}
	var active, peak atomic.Int32

	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("task-%d", i)
		q.Enqueue(NewTask("t1", KindMemberNickname, name, func(ctx context.Context) error {
			if n := active.Add(1); n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			rec.add(name)
			active.Add(-1)
			return nil
		}))
	}
	q.Wait()

	want := make([]string, 10)
	for i := range want {
		want[i] = fmt.Sprintf("task-%d", i)
	}
	assert.Equal(t, want, rec.list())
	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 0, q.Len("t1"))
}

func TestQueues_GateBoundsAcrossTargets(t *testing.T) {
	q := newQueues(1, clock.Real(), 0)
	defer q.Close()

	var active, peak atomic.Int32
	var done atomic.Int32
	for _, target := range []string{"a", "b", "c"} {
		for i := 0; i < 3; i++ {
			q.Enqueue(NewTask(target, KindMemberNickname, "x", func(ctx context.Context) error {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				done.Add(1)
				return nil
			}))
		}
	}
	q.Wait()

	assert.Equal(t, int32(9), done.Load())
	assert.Equal(t, int32(1), peak.Load())
}

func TestQueues_FailuresDoNotStopDraining(t *testing.T) {
	q := newQueues(1, clock.Real(), 0)
	defer q.Close()

	rec := &recorder{}
	q.Enqueue(NewTask("t1", KindOwnNickname, "fails", func(ctx context.Context) error {
		rec.add("fails")
		return errors.New("remote said no")
	}))
	q.Enqueue(NewTask("t1", KindMemberNickname, "panics", func(ctx context.Context) error {
		rec.add("panics")
		panic("boom")
	}))
	q.Enqueue(NewTask("t1", KindMemberNickname, "runs", func(ctx context.Context) error {
		rec.add("runs")
		return nil
	}))
	q.Wait()

	assert.Equal(t, []string{"fails", "panics", "runs"}, rec.list())
}

func TestQueues_PauseBetweenTasks(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	q := newQueues(1, fake, 500*time.Millisecond)
	defer q.Close()

	rec := &recorder{}
	for _, name := range []string{"first", "second"} {
		name := name
		q.Enqueue(NewTask("t1", KindMemberNickname, name, func(ctx context.Context) error {
			rec.add(name)
			return nil
		}))
	}

	// first runs, then the loop sleeps on the fake clock
	fake.BlockUntil(1)
	assert.Equal(t, []string{"first"}, rec.list())

	fake.Advance(499 * time.Millisecond)
	assert.Equal(t, []string{"first"}, rec.list())

	fake.Advance(time.Millisecond)
	fake.BlockUntil(1) // pause after the second task
	assert.Equal(t, []string{"first", "second"}, rec.list())

	fake.Advance(500 * time.Millisecond)
	q.Wait()
}

func TestQueues_CloseDropsPending(t *testing.T) {
	q := newQueues(1, clock.Real(), 0)

	release := make(chan struct{})
	started := make(chan struct{})
	var ran atomic.Int32

	q.Enqueue(NewTask("t1", KindMemberNickname, "blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	q.Enqueue(NewTask("t1", KindMemberNickname, "never", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	}))
	<-started
	require.Equal(t, 1, q.Len("t1"))

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool { return q.Total() == 0 }, time.Second, time.Millisecond)
	close(release)
	<-closed

	assert.Equal(t, int32(0), ran.Load())
	assert.False(t, q.Enqueue(NewTask("t1", KindMemberNickname, "late", func(context.Context) error { return nil })))
}

type countingObserver struct {
	started, finished, failed atomic.Int32
}

func (o *countingObserver) TaskStarted(Task) { o.started.Add(1) }

func (o *countingObserver) TaskFinished(_ Task, err error, _ time.Duration) {
	o.finished.Add(1)
	if err != nil {
		o.failed.Add(1)
	}
}

func TestQueues_Observer(t *testing.T) {
	obs := &countingObserver{}
	q := New(Config{Gate: admission.New(1), Observer: obs})
	defer q.Close()

	q.Enqueue(NewTask("t1", KindTitleRevert, "ok", func(context.Context) error { return nil }))
	q.Enqueue(NewTask("t1", KindTitleRevert, "bad", func(context.Context) error { return errors.New("x") }))
	q.Wait()

	assert.Equal(t, int32(2), obs.started.Load())
	assert.Equal(t, int32(2), obs.finished.Load())
	assert.Equal(t, int32(1), obs.failed.Load())
}
