package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to the identity whose bucket it draws from.
type KeyFunc func(*gin.Context) string

// KeyByClientOrIP keys buckets by API client when authenticated and by
// client IP otherwise.
func KeyByClientOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if id := c.GetString(ctxKeyClientID); id != "" {
			return "client:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per key. It protects the API
// surface only: LinkedIn pacing and daily quotas are enforced by the run
// pipeline, not here.
type RateLimiter struct {
	limit rate.Limit
	burst int
	key   KeyFunc

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows rps requests per second with the given burst
// (minimum 1) for every key.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   max(burst, 1),
		key:     key,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// limiter returns the bucket for key. Buckets idle for idleTTL are dropped
// at most once per idleTTL.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// IsRateBypass reports whether IdempotencyValidator exempted the request.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit. Rejected requests get 429 with a Retry-After
// giving the whole seconds until a token is available.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		res := rl.limiter(rl.key(c)).ReserveN(now, 1)
		retry := "60"
		if res.OK() {
			delay := res.DelayFrom(now)
			if delay == 0 {
				c.Next()
				return
			}
			res.CancelAt(now)
			// a zero rate never refills
			if delay != rate.InfDuration {
				retry = strconv.Itoa(int(math.Ceil(delay.Seconds())))
			}
		}
		c.Header("Retry-After", retry)
		reject(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}
