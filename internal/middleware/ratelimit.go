package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hackhub/backend/pkg/response"
)

// tokenBucket refills continuously at rate tokens per second up to burst.
type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a per-key token bucket limiter kept in memory.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	burst   float64
	rate    float64
	now     func() time.Time
}

// NewRateLimiter allows burst requests at once and perMinute sustained per key.
func NewRateLimiter(burst int, perMinute float64) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		burst:   float64(burst),
		rate:    perMinute / 60,
		now:     time.Now,
	}
}

// Allow consumes a token for key if one is available.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	}
	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastSeen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Sweep drops buckets idle longer than maxIdle.
func (l *RateLimiter) Sweep(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-maxIdle)
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

// RateLimit rejects requests over the limiter's budget, keyed by client IP.
func RateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
