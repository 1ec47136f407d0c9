// ratelimit.go implements per-session rate limiting using a token bucket algorithm.
//
// How token bucket works:
// - Each session gets a "bucket" with N tokens (= DEFAULT_RATE_LIMIT)
// - Each request consumes 1 token
// - Tokens refill at a steady rate (N tokens per hour)
// - If the bucket is empty, the request is rejected with 429 Too Many Requests
//
// Requests without a session (session creation and the stateless tool
// endpoints) are bucketed by client IP instead.
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

// RateLimiter tracks request rates per session.
type RateLimiter struct {
	limit int // tokens per hour

	// Go Pattern: sync.Mutex guards the bucket map. Every check both reads
	// and writes a bucket, so an RWMutex would buy nothing here.
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	done chan struct{}
	once sync.Once
}

// bucket tracks the token state for a single caller.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// allowResult contains the result of a rate limit check,
// including header information for the response.
type allowResult struct {
	allowed   bool
	remaining float64
	limit     float64
}

// NewRateLimiter creates a limiter allowing limitPerHour requests per
// caller. Call Close to stop its cleanup goroutine.
func NewRateLimiter(limitPerHour int) *RateLimiter {
	if limitPerHour <= 0 {
		limitPerHour = 1
	}
	rl := &RateLimiter{
		limit:   limitPerHour,
		buckets: make(map[string]*bucket),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	// Start background cleanup goroutine
	go rl.cleanup(10 * time.Minute)

	return rl
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// RateLimit returns Gin middleware that enforces the limit. Place it after
// SessionAuth on session routes so the bucket follows the session.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := GetSessionID(c); id != "" {
			key = "session:" + id
		}

		// Check rate limit — this returns all info atomically to avoid race conditions
		result := rl.allow(key)
		c.Header("X-RateLimit-Limit", formatFloat(result.limit))
		if !result.allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Rate limit exceeded. Try again later.",
				Code:    http.StatusTooManyRequests,
			})
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", formatFloat(result.remaining))

		c.Next()
	}
}

// allow checks if a request should be allowed, consuming a token if so.
func (rl *RateLimiter) allow(key string) allowResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	capacity := float64(rl.limit)
	now := rl.now()

	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{tokens: capacity, lastRefill: now}
		rl.buckets[key] = b
	}

	// Refill tokens based on elapsed time (limit per hour)
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * capacity / 3600.0
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.lastRefill = now

	if b.tokens < 1.0 {
		return allowResult{allowed: false, remaining: 0, limit: capacity}
	}

	b.tokens--
	return allowResult{allowed: true, remaining: b.tokens, limit: capacity}
}

// cleanup periodically removes stale buckets to prevent memory leaks.
func (rl *RateLimiter) cleanup(every time.Duration) {
	// Go Pattern: time.Ticker sends values at regular intervals.
	// Always defer ticker.Stop() to release resources.
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops buckets that have been idle for over an hour. An idle hour
// refills any bucket, so dropping it loses nothing.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// formatFloat converts a float to a string for headers.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.0f", f)
}
