package upstream

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Delay is the wait before retry number attempt (1-based): base * attempt.
func Delay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return base * time.Duration(attempt)
}

// LinearBackOff adapts Delay to backoff.BackOff. It never returns
// backoff.Stop by itself; the attempt cap comes from backoff.WithMaxRetries.
type LinearBackOff struct {
	Base    time.Duration
	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NextBackOff returns the next delay in the linear sequence.
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return Delay(b.Base, b.attempt)
}

// Reset restarts the sequence.
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
