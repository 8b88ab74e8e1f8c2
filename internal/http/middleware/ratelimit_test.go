package middleware

import (
	"testing"
	"time"
)

func TestIPLimiterBurstThenDeny(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 2)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Fatalf("expected third immediate request to be denied")
	}
	if !l.allow("10.0.0.2") {
		t.Fatalf("expected a different IP to have its own bucket")
	}
}

func TestIPLimiterRefills(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") {
		t.Fatalf("expected first request to be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Fatalf("expected immediate retry to be denied")
	}

	now = now.Add(2 * time.Second)
	if !l.allow("10.0.0.1") {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestIPLimiterPrunesIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	now = now.Add(bucketIdleTTL + time.Minute)
	l.allow("10.0.0.2")

	l.mu.Lock()
	_, stale := l.buckets["10.0.0.1"]
	l.mu.Unlock()
	if stale {
		t.Fatalf("expected idle bucket to be pruned")
	}
}
