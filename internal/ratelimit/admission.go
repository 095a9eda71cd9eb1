package ratelimit

import (
	"math"
	"time"
)

// Decision is the outcome of one admission check. Remaining and ResetAt feed
// the X-RateLimit-* response headers; RetryAfter is set only on rejection.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Admission decides admit/reject per client key against the backing store.
// Decisions for the same key are totally ordered: the bucket's own mutex
// serializes the refill-and-decrement, so two concurrent requests from an
// exhausted client cannot both pass.
type Admission struct {
	store *Store
}

func NewAdmission(store *Store) *Admission {
	return &Admission{store: store}
}

func (a *Admission) Admit(key string) Decision {
	return a.AdmitAt(key, a.store.now())
}

func (a *Admission) AdmitAt(key string, now time.Time) Decision {
	b := a.store.bucketFor(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	allowed := b.lim.AllowN(now, 1)
	tokens := b.lim.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}

	refillPerSecond := float64(a.store.limit)
	full := float64(a.store.burst)

	decision := Decision{
		Allowed:   allowed,
		Limit:     a.store.capacity,
		Remaining: int(math.Floor(tokens)),
		ResetAt:   now.Add(secondsToDuration((full - tokens) / refillPerSecond)),
	}
	if !allowed {
		decision.RetryAfter = secondsToDuration((1 - tokens) / refillPerSecond)
	}
	return decision
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
