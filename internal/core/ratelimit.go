package core

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"airwatch/internal/types"
)

// limiterIdleTTL is how long an unused per-key limiter is retained.
const limiterIdleTTL = 10 * time.Minute

// TokenBucketStore implements RateLimitStore with one x/time/rate limiter
// per key, refilling at limit/window tokens per second with a burst of limit.
// State is process-local.
type TokenBucketStore struct {
	clock types.Clock

	mu        sync.Mutex
	limiters  map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketStore creates an empty store. A nil clock uses RealClock.
func NewTokenBucketStore(clock types.Clock) *TokenBucketStore {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &TokenBucketStore{
		clock:    clock,
		limiters: make(map[string]*bucket),
	}
}

// IncrementAndCheck consumes one token for key if one is available.
func (s *TokenBucketStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	b, ok := s.limiters[key]
	if !ok {
		every := rate.Limit(float64(limit) / window.Seconds())
		b = &bucket{limiter: rate.NewLimiter(every, limit)}
		s.limiters[key] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return RateLimitResult{
			Allowed:   true,
			Remaining: remaining(b.limiter, now),
			ResetAt:   now,
		}, nil
	}

	r := b.limiter.ReserveN(now, 1)
	var delay time.Duration
	if r.OK() {
		delay = r.DelayFrom(now)
		r.CancelAt(now)
	}
	return RateLimitResult{
		Allowed:   false,
		Remaining: 0,
		ResetAt:   now.Add(delay),
	}, nil
}

func remaining(l *rate.Limiter, now time.Time) int {
	t := l.TokensAt(now)
	if t < 0 {
		return 0
	}
	return int(math.Floor(t))
}

// sweep drops limiters idle for longer than limiterIdleTTL. It runs at most
// once per TTL. Caller holds s.mu.
func (s *TokenBucketStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < limiterIdleTTL {
		return
	}
	s.lastSweep = now
	for key, b := range s.limiters {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(s.limiters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}
