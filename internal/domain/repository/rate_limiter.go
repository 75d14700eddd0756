package repository

import "time"

// RateLimiter decides whether a user may issue another request
type RateLimiter interface {
	// Check atomically accepts the request and records it, or rejects it
	// and reports how long the user still has to wait.
	Check(userID int64) (allowed bool, retryAfter time.Duration)
}
