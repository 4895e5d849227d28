// Package admission bounds how many remote operations run at once across
// all targets.
package admission

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter admits at most N concurrent operations. Waiters are admitted in
// arrival order.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64

	inFlight atomic.Int64
	waiting  atomic.Int64
}

// New returns a Limiter admitting up to n operations. n below 1 is treated
// as 1.
func New(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), capacity: int64(n)}
}

// Acquire blocks until a slot is free or ctx is done. On success the caller
// must call Release exactly once.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.waiting.Add(1)
	err := l.sem.Acquire(ctx, 1)
	l.waiting.Add(-1)
	if err != nil {
		return err
	}
	l.inFlight.Add(1)
	return nil
}

// Release frees the slot taken by a successful Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Capacity returns N.
func (l *Limiter) Capacity() int { return int(l.capacity) }

// InFlight returns the number of admitted operations.
func (l *Limiter) InFlight() int { return int(l.inFlight.Load()) }

// Waiting returns the number of callers blocked in Acquire.
func (l *Limiter) Waiting() int { return int(l.waiting.Load()) }
