package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SecurityHeaders adds security-related headers to all responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		// Cart responses are per-visitor and must never be cached by proxies.
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	rate    rate.Limit
	burst   int
	ttl     time.Duration
}

// NewRateLimiter creates a rate limiter whose idle entries are evicted every
// ttl until ctx is cancelled.
func NewRateLimiter(ctx context.Context, r rate.Limit, b int, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*limiterEntry),
		rate:    r,
		burst:   b,
		ttl:     ttl,
	}

	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.evict(now)
			}
		}
	}()

	return rl
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, e := range rl.clients {
		if now.Sub(e.lastSeen) > rl.ttl {
			delete(rl.clients, key)
		}
	}
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	entry, ok := rl.clients[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()
	return entry.limiter.Allow()
}

// RateLimitMiddleware rejects requests from client IPs that exhausted their bucket.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// CORSMiddleware allows the listed storefront origins ("*" allows any). The
// guest identity header is both accepted and exposed so the browser can keep
// the ID the service issues.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Guest-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Guest-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range allowed {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			cfg.AllowAllOrigins = true
		default:
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	if cfg.AllowAllOrigins {
		// Browsers refuse credentials with a wildcard origin.
		cfg.AllowOrigins = nil
		cfg.AllowCredentials = false
	}
	return cors.New(cfg)
}
