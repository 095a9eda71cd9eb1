package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock supplies the current time. Tests inject a synthetic clock.
type Clock func() time.Time

// Store holds one token bucket per client key. Buckets are created lazily and
// start full; idle buckets are swept by the janitor, and recreation on a later
// request is safe because a fresh bucket carries the never-seen-before
// semantic.
type Store struct {
	mu      sync.Mutex
	entries map[string]*bucket

	limit        rate.Limit
	capacity     int
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          Clock
}

// bucket pairs a limiter with its own mutex so the refill-and-decrement of an
// admission decision is atomic per key.
type bucket struct {
	mu       sync.Mutex
	lim      *rate.Limiter
	lastSeen time.Time
}

type StoreOption func(*Store)

func WithClock(now Clock) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

// NewStore configures buckets that sustain capacity requests per window, with
// burst extra tokens of headroom on top.
func NewStore(capacity int, window time.Duration, burst int, opts ...StoreOption) *Store {
	if capacity < 1 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst < 0 {
		burst = 0
	}

	s := &Store{
		entries:      make(map[string]*bucket),
		limit:        rate.Limit(float64(capacity) / window.Seconds()),
		capacity:     capacity,
		burst:        capacity + burst,
		idleTTL:      3 * window,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit is the sustained per-window capacity; EffectiveCapacity adds burst
// headroom and equals a full bucket.
func (s *Store) Limit() int             { return s.capacity }
func (s *Store) EffectiveCapacity() int { return s.burst }

func (s *Store) bucketFor(key string, now time.Time) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.entries[key]; ok {
		b.lastSeen = now
		return b
	}

	b := &bucket{
		lim:      rate.NewLimiter(s.limit, s.burst),
		lastSeen: now,
	}
	s.entries[key] = b
	return b
}

// Len reports the number of live buckets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup drops buckets idle longer than the configured TTL.
func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, b := range s.entries {
		if b.lastSeen.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

// StartJanitor sweeps idle buckets until the context ends.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	ticker := time.NewTicker(s.cleanupEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
