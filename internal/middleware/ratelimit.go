package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/course-review-backend/internal/response"
)

// KeyFunc picks the bucket a request is charged against.
type KeyFunc func(c *gin.Context) string

// ClientIP buckets requests by client address.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ClaimsUserOrIP buckets authenticated requests by user and falls back to the
// client address. Must run after one of the JWT middlewares.
func ClaimsUserOrIP(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter implements a simple token bucket rate limiter.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // Tokens per interval
	interval time.Duration // Refill interval
	key      KeyFunc
	now      func() time.Time
}

type visitor struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter keyed by client IP (e.g., 10 requests per minute).
// A non-positive rate disables limiting.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return NewKeyedRateLimiter(rate, interval, ClientIP)
}

// NewKeyedRateLimiter creates a RateLimiter that buckets requests with key.
func NewKeyedRateLimiter(rate int, interval time.Duration, key KeyFunc) *RateLimiter {
	if interval <= 0 {
		interval = time.Minute
	}
	if key == nil {
		key = ClientIP
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		key:      key,
		now:      time.Now,
	}
}

// Middleware returns a Gin middleware that rate-limits requests.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		if !rl.allow(rl.key(c)) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{tokens: rl.rate, lastSeen: now}
		rl.visitors[key] = v
		rl.sweep(now)
	}

	// Refill tokens based on elapsed time.
	refill := int(now.Sub(v.lastSeen)/rl.interval) * rl.rate
	if refill > 0 {
		v.tokens = min(v.tokens+refill, rl.rate)
		v.lastSeen = now
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// sweep drops idle buckets. Called with mu held when a bucket is created.
func (rl *RateLimiter) sweep(now time.Time) {
	idle := 3 * rl.interval
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(rl.visitors, k)
		}
	}
}
