package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterNeverExceedsCapacity(t *testing.T) {
	for _, n := range []int{1, 2, 4} {
		l := New(n)
		var current, peak atomic.Int64
		var wg sync.WaitGroup

		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !assert.NoError(t, l.Acquire(context.Background())) {
					return
				}
				c := current.Add(1)
				for {
					p := peak.Load()
					if c <= p || peak.CompareAndSwap(p, c) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				current.Add(-1)
				l.Release()
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, peak.Load(), int64(n))
		assert.Equal(t, 0, l.InFlight())
		assert.Equal(t, 0, l.Waiting())
	}
}

func TestLimiterAdmitsInArrivalOrder(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Acquire(context.Background()))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if !assert.NoError(t, l.Acquire(context.Background())) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			l.Release()
		}(i)
		// wait until waiter i is queued before starting the next one
		require.Eventually(t, func() bool { return l.Waiting() == i+1 }, time.Second, time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	l.Release()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLimiterAcquireCancelled(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.InFlight())
	assert.Equal(t, 0, l.Waiting())
}

func TestNewClampsCapacity(t *testing.T) {
	assert.Equal(t, 1, New(0).Capacity())
	assert.Equal(t, 3, New(3).Capacity())
}
