package middleware

import (
	"net/http"
	"sync"
	"time"
)

const bucketIdleTTL = 10 * time.Minute

// ipLimiter tracks one token bucket per client IP. Buckets idle past
// bucketIdleTTL are pruned opportunistically on the request path, so no
// background goroutine is needed.
type ipLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	rate      float64
	burst     float64
	now       func() time.Time
	lastPrune time.Time
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

func newIPLimiter(rate float64, burst int) *ipLimiter {
	return &ipLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybePrune(now)

	b, ok := l.buckets[ip]
	if !ok {
		b = &tokenBucket{tokens: l.burst, seen: now}
		l.buckets[ip] = b
	}
	b.tokens += now.Sub(b.seen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *ipLimiter) maybePrune(now time.Time) {
	if now.Sub(l.lastPrune) < bucketIdleTTL {
		return
	}
	cutoff := now.Add(-bucketIdleTTL)
	for ip, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
	l.lastPrune = now
}

// RateLimit rejects requests over rate req/s (per client IP, with the given
// burst) with 429 Too Many Requests.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newIPLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
