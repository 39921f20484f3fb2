package ratelimiter

import (
	"sync"
	"time"
)

// Limiter allows one action per interval. It is used to throttle per-download
// progress reporting and is safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastAllowed time.Time
}

// New creates a rate limiter allowing at most one action per interval.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// Allow reports whether an action is allowed now and, if so, records it as
// the last allowed action.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastAllowed) >= l.interval {
		l.lastAllowed = now
		return true
	}
	return false
}

// Reset clears the limiter state, allowing the next action immediately.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.lastAllowed = time.Time{}
	l.mu.Unlock()
}
