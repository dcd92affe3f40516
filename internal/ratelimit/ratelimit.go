// Package ratelimit provides fixed-window admission control for mutating
// requests. Counters reset at window boundaries, so a caller can burst up
// to 2x the limit across a window edge; that imprecision is an accepted
// trade-off of the fixed-window algorithm.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of a single admission check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a keyed request is admitted right now.
// Implementations never error; an unavailable backend must fail open.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) Result
}

// Clock abstracts wall-clock reads so window behavior is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type window struct {
	count    int
	start    time.Time
	lastSeen time.Time
}

// WindowStore is an in-process fixed-window limiter. The read-increment-
// write sequence for a key is serialized under a single mutex; concurrent
// callers sharing a key can never exceed the limit within one window.
type WindowStore struct {
	mu      sync.Mutex
	windows map[string]*window
	clock   Clock

	idleWindows  int
	cleanupEvery time.Duration
}

// StoreOption configures a WindowStore.
type StoreOption func(*WindowStore)

// WithClock injects a clock, used by tests to step through windows.
func WithClock(c Clock) StoreOption {
	return func(s *WindowStore) { s.clock = c }
}

// WithIdleWindows sets how many multiples of a key's window must pass
// untouched before the key is evicted.
func WithIdleWindows(n int) StoreOption {
	return func(s *WindowStore) { s.idleWindows = n }
}

// WithCleanupEvery sets the janitor sweep interval.
func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

// NewWindowStore creates an in-process fixed-window limiter.
func NewWindowStore(opts ...StoreOption) *WindowStore {
	s := &WindowStore{
		windows:      make(map[string]*window),
		clock:        SystemClock(),
		idleWindows:  3,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check implements Limiter. A key with no window, or whose window has
// expired, starts a fresh window with count 1 and is allowed. Otherwise
// the counter is incremented and the request is allowed iff the post-
// increment count does not exceed the limit.
func (s *WindowStore) Check(_ context.Context, key string, limit int, windowDur time.Duration) Result {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= windowDur {
		s.windows[key] = &window{count: 1, start: now, lastSeen: now}
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(windowDur)}
	}

	w.lastSeen = now
	w.count++
	resetAt := w.start.Add(windowDur)
	if w.count > limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	return Result{Allowed: true, Remaining: limit - w.count, ResetAt: resetAt}
}

// Evict removes keys untouched for at least idleWindows multiples of the
// given window length.
func (s *WindowStore) Evict(windowDur time.Duration) {
	cutoff := s.clock.Now().Add(-time.Duration(s.idleWindows) * windowDur)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		if w.lastSeen.Before(cutoff) {
			delete(s.windows, key)
		}
	}
}

// Len reports the number of tracked keys.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// StartJanitor sweeps idle keys periodically until ctx is cancelled.
func (s *WindowStore) StartJanitor(ctx context.Context, windowDur time.Duration) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Evict(windowDur)
			}
		}
	}()
}
