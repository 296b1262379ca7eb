// ratelimit.go implements per-actor rate limiting using a token bucket.
//
// How token bucket works:
// - Each actor gets a "bucket" holding up to N tokens (N = requests per hour)
// - Each request consumes 1 token
// - Tokens refill at a steady rate (N tokens per hour)
// - If the bucket is empty, the request is rejected with 429 Too Many Requests
//
// Go Pattern: golang.org/x/time/rate already implements the bucket, so each
// actor just gets its own *rate.Limiter. Every search costs real Data API
// quota, which is why anonymous sessions are throttled at all.
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
)

// RateLimiter tracks request rates per actor.
type RateLimiter struct {
	// Go Pattern: sync.Mutex guards the map; each rate.Limiter is itself
	// safe for concurrent use.
	mu       sync.Mutex
	visitors map[string]*visitor
	perHour  int
	owner    string
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// allowResult contains the result of a rate limit check,
// including header information for the response.
type allowResult struct {
	allowed   bool
	remaining float64
	limit     int
}

// NewRateLimiter creates a limiter allowing perHour requests per actor.
// ownerActorID, when set, is never limited.
func NewRateLimiter(perHour int, ownerActorID string) *RateLimiter {
	if perHour < 1 {
		perHour = 1
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		perHour:  perHour,
		owner:    ownerActorID,
		now:      time.Now,
	}

	// Start background cleanup goroutine
	go rl.cleanup()

	return rl
}

// RateLimit returns Gin middleware that enforces per-actor rate limits.
// It must run after SessionAuth.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := GetActorID(c)
		if actorID == "" || IsOwner(actorID, rl.owner) {
			c.Next()
			return
		}

		result := rl.allow(actorID)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.limit))
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

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%.0f", result.remaining))
		c.Next()
	}
}

// allow consumes a token for actorID if one is available.
func (rl *RateLimiter) allow(actorID string) allowResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[actorID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(rl.perHour)), rl.perHour)}
		rl.visitors[actorID] = v
	}
	v.lastSeen = now

	if !v.limiter.AllowN(now, 1) {
		return allowResult{allowed: false, limit: rl.perHour}
	}
	remaining := v.limiter.TokensAt(now)
	if remaining < 0 {
		remaining = 0
	}
	return allowResult{allowed: true, remaining: remaining, limit: rl.perHour}
}

// cleanup periodically removes idle visitors to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	// Go Pattern: time.Ticker sends values at regular intervals.
	// Always defer ticker.Stop() to release resources.
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for id, v := range rl.visitors {
			// A visitor idle for an hour has a full bucket again anyway.
			if now.Sub(v.lastSeen) > time.Hour {
				delete(rl.visitors, id)
			}
		}
		rl.mu.Unlock()
	}
}
