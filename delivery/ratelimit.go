// Package delivery implements inbound webhook ingestion: per-partner
// signature verification, event-id dedup, and the per-partner ingestion
// rate limit (spec.md §4.5/§6).
package delivery

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter rate-limits ingestion per partner id, lazily allocating one
// token bucket per partner the first time it is seen.
type Limiter struct {
	mu            sync.Mutex
	buckets       map[string]*rate.Limiter
	ratePerSecond float64
	burst         int
}

// NewLimiter constructs a per-partner rate limiter.
func NewLimiter(ratePerSecond float64, burst int) *Limiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &Limiter{buckets: make(map[string]*rate.Limiter), ratePerSecond: ratePerSecond, burst: burst}
}

// Allow reports whether partnerID may ingest one more event right now.
func (l *Limiter) Allow(partnerID string, now time.Time) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[partnerID]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(l.ratePerSecond), l.burst)
		l.buckets[partnerID] = bucket
	}
	l.mu.Unlock()
	return bucket.AllowN(now, 1)
}
