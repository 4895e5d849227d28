package session

import "time"

// RetryPolicy spaces login attempts after a failed or lost session.
type RetryPolicy struct {
	Step time.Duration
	Max  time.Duration
}

// DefaultRetryPolicy waits 5s more per consecutive failure, up to a minute.
var DefaultRetryPolicy = RetryPolicy{Step: 5 * time.Second, Max: 60 * time.Second}

// Backoff returns the wait before the next attempt, given the number of
// consecutive failures so far.
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(attempts) * p.Step
	if d > p.Max || d <= 0 {
		return p.Max
	}
	return d
}
