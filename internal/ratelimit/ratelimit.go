// Package ratelimit provides per-key sliding-window admission control.
//
// Each key gets an independent window: a request is admitted only when
// fewer than limit requests were admitted for that key within the trailing
// window. Idle keys are pruned opportunistically during Allow calls.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults for the HTTP admission layer.
const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute

	pruneInterval = time.Minute
)

// Limiter tracks admission timestamps per key.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	now       func() time.Time
	requests  map[string][]time.Time
	lastPrune time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter admitting limit requests per key per window.
// Non-positive arguments fall back to the defaults.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastPrune = l.now()
	return l
}

// Allow records and admits a request for key, or rejects it when the key
// has exhausted its window. Expired timestamps are discarded first, so a
// rejected key becomes admissible the moment its oldest request leaves
// the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybePrune(now)

	cutoff := now.Add(-l.window)
	kept := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.requests[key] = kept
		return false
	}

	l.requests[key] = append(kept, now)
	return true
}

// maybePrune drops keys whose every timestamp has expired. Runs at most
// once per pruneInterval; callers hold the mutex.
func (l *Limiter) maybePrune(now time.Time) {
	if now.Sub(l.lastPrune) < pruneInterval {
		return
	}
	l.lastPrune = now

	cutoff := now.Add(-l.window)
	for key, times := range l.requests {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.requests, key)
		}
	}
}
