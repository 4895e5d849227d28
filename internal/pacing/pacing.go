// Package pacing decides how long to wait after each nickname correction.
//
// Corrections follow a 16-step cycle keyed by the target's change count:
// positions 0-4 and 11-15 use the fast band, positions 5-10 the slow band.
package pacing

import (
	"math/rand/v2"
	"sync"
	"time"
)

const cycleLength = 16

// Band is a half-open range [Min, Max) of delays.
type Band struct {
	Min time.Duration
	Max time.Duration
}

// Policy maps change counts to delays.
type Policy struct {
	Fast Band
	Slow Band

	mu   sync.Mutex
	rand *rand.Rand
}

// NewPolicy returns a Policy drawing from a randomly seeded source.
func NewPolicy(fast, slow Band) *Policy {
	return NewPolicyWithRand(fast, slow, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewPolicyWithRand returns a Policy drawing from r, for reproducible tests.
func NewPolicyWithRand(fast, slow Band, r *rand.Rand) *Policy {
	return &Policy{Fast: fast, Slow: slow, rand: r}
}

// IsSlow reports whether count falls in the slow part of the cycle.
func IsSlow(count int) bool {
	pos := ((count % cycleLength) + cycleLength) % cycleLength
	return pos >= 5 && pos <= 10
}

// NextDelay returns a delay drawn uniformly from the band count selects.
func (p *Policy) NextDelay(count int) time.Duration {
	band := p.Fast
	if IsSlow(count) {
		band = p.Slow
	}
	return p.draw(band)
}

// Jitter returns a delay drawn uniformly from b.
func (p *Policy) Jitter(b Band) time.Duration {
	return p.draw(b)
}

func (p *Policy) draw(b Band) time.Duration {
	if b.Max <= b.Min {
		return b.Min
	}
	p.mu.Lock()
	n := p.rand.Int64N(int64(b.Max - b.Min))
	p.mu.Unlock()
	return b.Min + time.Duration(n)
}
