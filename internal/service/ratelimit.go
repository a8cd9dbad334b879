package service

import (
	"sync"
	"time"
)

// RateLimiter admits at most limit submissions per client within a
// trailing window. Each client keeps an ordered log of admission times
// that is pruned lazily on every check.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Admit records a submission for clientID and reports whether it fits in
// the window. Rejected submissions are not recorded.
func (l *RateLimiter) Admit(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	times := prune(l.hits[clientID], now, l.window)
	if len(times) >= l.limit {
		l.hits[clientID] = times
		return false
	}
	l.hits[clientID] = append(times, now)
	return true
}

// Sweep forgets clients with no admissions left in the window.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	forgotten := 0
	for id, times := range l.hits {
		if len(prune(times, now, l.window)) == 0 {
			delete(l.hits, id)
			forgotten++
		}
	}
	return forgotten
}

// prune drops the leading timestamps that fell out of the window. times is
// in admission order, so the survivors are a suffix.
func prune(times []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(times) && now.Sub(times[i]) >= window {
		i++
	}
	return times[i:]
}
