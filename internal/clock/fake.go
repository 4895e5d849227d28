package clock

import (
	"sync"
	"time"
)

// Fake is a Clock whose time only moves when Advance is called.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline order,
// and observe Now() equal to their own deadline. A callback must not call
// Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeTimer
	changed *sync.Cond
}

type fakeTimer struct {
	at    time.Time
	ch    chan time.Time
	fn    func()
	every time.Duration
	done  bool
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.changed = sync.NewCond(&f.mu)
	return f
}

// Now returns the current virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTimer(d time.Duration) *Timer {
	ch := make(chan time.Time, 1)
	t := f.add(d, ch, nil, 0)
	return &Timer{C: ch, stop: func() bool { return f.remove(t) }}
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) *Timer {
	if d <= 0 {
		fn()
		return &Timer{stop: func() bool { return false }}
	}
	t := f.add(d, nil, fn, 0)
	return &Timer{stop: func() bool { return f.remove(t) }}
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	ch := make(chan time.Time, 1)
	t := f.add(d, ch, nil, d)
	return &Ticker{C: ch, stop: func() { f.remove(t) }}
}

func (f *Fake) add(d time.Duration, ch chan time.Time, fn func(), every time.Duration) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{at: f.now.Add(d), ch: ch, fn: fn, every: every}
	if d <= 0 && ch != nil {
		ch <- f.now
		t.done = true
		return t
	}
	f.pending = append(f.pending, t)
	f.changed.Broadcast()
	return t
}

func (f *Fake) remove(t *fakeTimer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	for i, p := range f.pending {
		if p == t {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	f.changed.Broadcast()
	return true
}

// Advance moves virtual time forward by d, firing every timer and ticker
// whose deadline falls inside the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.at
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.done = true
			f.dropLocked(next)
		}
		now := f.now
		f.changed.Broadcast()
		f.mu.Unlock()

		if next.fn != nil {
			next.fn()
			continue
		}
		select {
		case next.ch <- now:
		default:
		}
	}
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTimer {
	var next *fakeTimer
	for _, t := range f.pending {
		if t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) {
			next = t
		}
	}
	return next
}

func (f *Fake) dropLocked(t *fakeTimer) {
	for i, p := range f.pending {
		if p == t {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

// Pending reports how many timers and tickers are registered.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// BlockUntil waits until at least n timers or tickers are registered.
// Tests use it to avoid advancing before a goroutine has started waiting.
func (f *Fake) BlockUntil(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) < n {
		f.changed.Wait()
	}
}
