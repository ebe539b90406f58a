// Package ratelimit throttles API clients with a sliding window per key.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string][]time.Time
}

// NewLimiter allows limit requests per key in any window. A limit of zero or
// less disables limiting.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: map[string][]time.Time{},
	}
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (l *Limiter) Allow(key string, now time.Time) Result {
	if l.limit <= 0 {
		return Result{Allowed: true}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.trim(key, now)
	res := Result{Limit: l.limit, Allowed: len(history) < l.limit}
	if res.Allowed {
		history = append(history, now)
		l.buckets[key] = history
		res.Remaining = l.limit - len(history)
	}
	res.ResetAt = history[0].Add(l.window)
	return res
}

func (l *Limiter) trim(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	history := l.buckets[key]
	kept := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.buckets, key)
		return nil
	}
	l.buckets[key] = kept
	return kept
}

// Keys reports how many clients currently hold a window.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
