// Package clock abstracts time so that pacing delays, cooldown windows and
// the title grace period can be driven by virtual time in tests.
//
// Production code uses Real(). Tests use NewFake and move time forward
// explicitly with Advance.
package clock

import (
	"context"
	"time"
)

// Clock is the subset of the time package the agent depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTimer creates a Timer that delivers the time on its C channel
	// once d has elapsed.
	NewTimer(d time.Duration) *Timer

	// AfterFunc calls f in its own goroutine (real) or synchronously
	// during Advance (fake) once d has elapsed. The returned Timer has
	// a nil C channel.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker delivers ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a cancellable one-shot timer.
type Timer struct {
	C <-chan time.Time

	stop func() bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped a pending timer.
func (t *Timer) Stop() bool { return t.stop() }

// Ticker delivers periodic ticks on C until stopped.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns the ticker off. No further ticks are delivered.
func (t *Ticker) Stop() { t.stop() }

// Sleep waits for d on c or until ctx is done, whichever comes first.
// It returns ctx.Err() when interrupted.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := c.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
