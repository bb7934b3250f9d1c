package ratelimit

import (
	"sync"
	"time"
)

const (
	maxKeys    = 1000
	evictBatch = 100
)

// Limiter is an in-process sliding-window rate limiter keyed by arbitrary
// strings (client IP, canonical phone number). It is an abuse deterrent,
// not a hard guarantee: state is process-local and not shared across
// instances.
type Limiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	keyOrder []string
	now      func() time.Time
}

// New creates an empty limiter. Each caller that wants isolated state
// constructs its own instance; there is no package-level singleton.
func New() *Limiter {
	return &Limiter{
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow reports whether another attempt under key is permitted within the
// window. Allowed attempts are recorded; rejected attempts are not, so a
// blocked client does not extend its own block.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	_, seen := l.attempts[key]
	recent := l.attempts[key][:0]
	for _, ts := range l.attempts[key] {
		if now.Sub(ts) < window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= limit {
		// Only update tracked keys: writing an untracked key here would
		// bypass keyOrder and never be evicted.
		if seen {
			l.attempts[key] = recent
		}
		return false
	}

	if !seen {
		l.keyOrder = append(l.keyOrder, key)
	}
	l.attempts[key] = append(recent, now)

	if len(l.attempts) > maxKeys {
		l.evictOldest()
	}
	return true
}

// evictOldest drops the oldest-inserted keys to bound memory. Approximate:
// insertion order, not recency of use.
func (l *Limiter) evictOldest() {
	n := evictBatch
	if n > len(l.keyOrder) {
		n = len(l.keyOrder)
	}
	for _, key := range l.keyOrder[:n] {
		delete(l.attempts, key)
	}
	l.keyOrder = l.keyOrder[n:]
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
