// Package ratelimit enforces a per-user cooldown between accepted requests.
package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type record struct {
	userID int64
	last   time.Time
}

// Limiter tracks the last accepted request time per user.
//
// Records are kept in a list ordered by acceptance time, oldest at the front,
// so expiring them only ever touches the records that are actually stale.
// Every operation sweeps records older than the retention horizon before
// deciding, and Run sweeps on a fixed schedule as well.
type Limiter struct {
	mu        sync.Mutex
	cooldown  time.Duration
	retention time.Duration
	order     *list.List
	index     map[int64]*list.Element
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now; the clock must never go backwards.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets the logger used by Run.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a limiter. Retention shorter than cooldown is raised to cooldown
// so expiry can never let through a request the cooldown would reject.
func New(cooldown, retention time.Duration, opts ...Option) *Limiter {
	if retention < cooldown {
		retention = cooldown
	}
	l := &Limiter{
		cooldown:  cooldown,
		retention: retention,
		order:     list.New(),
		index:     make(map[int64]*list.Element),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether userID may proceed, recording the request if so.
func (l *Limiter) Allow(userID int64) bool {
	allowed, _ := l.Check(userID)
	return allowed
}

// Check is Allow plus the remaining wait for rejected requests.
// A rejected request leaves the existing record untouched.
func (l *Limiter) Check(userID int64) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	if el, ok := l.index[userID]; ok {
		rec := el.Value.(*record)
		if elapsed := now.Sub(rec.last); elapsed < l.cooldown {
			return false, l.cooldown - elapsed
		}
		rec.last = now
		l.order.MoveToBack(el)
		return true, 0
	}

	l.index[userID] = l.order.PushBack(&record{userID: userID, last: now})
	return true, 0
}

// Sweep drops every record older than the retention horizon and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

// Len returns the number of tracked users.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.index)
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				l.logger.Debug("rate limiter sweep", zap.Int("evicted", n), zap.Int("tracked", l.Len()))
			}
		}
	}
}

func (l *Limiter) sweepLocked(now time.Time) int {
	evicted := 0
	for {
		front := l.order.Front()
		if front == nil {
			return evicted
		}
		rec := front.Value.(*record)
		if now.Sub(rec.last) <= l.retention {
			return evicted
		}
		l.order.Remove(front)
		delete(l.index, rec.userID)
		evicted++
	}
}
