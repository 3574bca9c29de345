package delivery

import (
	"testing"
	"time"
)

func TestLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	limiter := NewLimiter(1, 2)
	now := time.Now()
	if !limiter.Allow("partner-1", now) {
		t.Fatalf("expected first request to be allowed")
	}
	if !limiter.Allow("partner-1", now) {
		t.Fatalf("expected second request (within burst) to be allowed")
	}
	if limiter.Allow("partner-1", now) {
		t.Fatalf("expected third immediate request to exceed the burst of 2")
	}
}

func TestLimiterRefillsOverTime(t *testing.T) {
	limiter := NewLimiter(1, 1)
	now := time.Now()
	if !limiter.Allow("partner-1", now) {
		t.Fatalf("expected the first request to be allowed")
	}
	if limiter.Allow("partner-1", now) {
		t.Fatalf("expected an immediate second request to be blocked")
	}
	later := now.Add(2 * time.Second)
	if !limiter.Allow("partner-1", later) {
		t.Fatalf("expected the bucket to refill after 2s at 1/s")
	}
}

func TestLimiterIsolatesBucketsPerPartner(t *testing.T) {
	limiter := NewLimiter(1, 1)
	now := time.Now()
	if !limiter.Allow("partner-1", now) {
		t.Fatalf("expected partner-1's first request to be allowed")
	}
	if !limiter.Allow("partner-2", now) {
		t.Fatalf("expected partner-2 to have its own independent bucket")
	}
}

func TestNewLimiterAppliesDefaults(t *testing.T) {
	limiter := NewLimiter(0, 0)
	if limiter.ratePerSecond != 10 || limiter.burst != 20 {
		t.Fatalf("expected non-positive inputs to fall back to defaults, got rate=%v burst=%d", limiter.ratePerSecond, limiter.burst)
	}
}
