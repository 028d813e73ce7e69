// internal/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/campushire/campushire/internal/httputil"
)

// KeyAllower decides whether a request identified by key may proceed.
// Implemented by the in-memory KeyLimiter and the Redis-backed Limiter.
type KeyAllower interface {
	Allow(ctx context.Context, key string) bool
}

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu       sync.Mutex
	rate     float64   // tokens per second
	burst    int       // maximum bucket size
	tokens   float64   // current tokens
	lastTime time.Time // last token update
}

// New creates a new rate limiter.
// rate is the number of requests allowed per second.
// burst is the maximum number of requests allowed in a burst.
func New(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
	}
}

// Allow reports whether a request is allowed.
// It consumes one token if available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastTime).Seconds()
	l.lastTime = now

	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}

	return false
}

// KeyLimiter provides per-key rate limiting (e.g., per IP address).
type KeyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     float64
	burst    int
	ttl      time.Duration
}

type entry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// NewKeyLimiter creates a rate limiter that tracks limits per key.
// rate is requests per second, burst is max burst size.
// ttl is how long to keep inactive keys before cleanup.
func NewKeyLimiter(rate float64, burst int, ttl time.Duration) *KeyLimiter {
	kl := &KeyLimiter{
		limiters: make(map[string]*entry),
		rate:     rate,
		burst:    burst,
		ttl:      ttl,
	}

	go kl.cleanup()

	return kl
}

// NewKeyLimiterFromWindow derives a per-second rate from "max requests per
// window" configuration, which is how the service expresses its thresholds.
func NewKeyLimiterFromWindow(max int, window time.Duration) *KeyLimiter {
	rate := float64(max) / window.Seconds()
	return NewKeyLimiter(rate, max, window*2)
}

// Allow checks if the request for the given key is allowed.
func (kl *KeyLimiter) Allow(_ context.Context, key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e, exists := kl.limiters[key]
	if !exists {
		e = &entry{
			limiter:  New(kl.rate, kl.burst),
			lastSeen: time.Now(),
		}
		kl.limiters[key] = e
	} else {
		e.lastSeen = time.Now()
	}

	return e.limiter.Allow()
}

// cleanup removes stale entries periodically.
func (kl *KeyLimiter) cleanup() {
	ticker := time.NewTicker(kl.ttl)
	defer ticker.Stop()

	for range ticker.C {
		kl.mu.Lock()
		now := time.Now()
		for key, e := range kl.limiters {
			if now.Sub(e.lastSeen) > kl.ttl {
				delete(kl.limiters, key)
			}
		}
		kl.mu.Unlock()
	}
}

// Size returns the number of tracked keys.
func (kl *KeyLimiter) Size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}

// KeyFunc extracts a key from an HTTP request for rate limiting.
type KeyFunc func(r *http.Request) string

// IPKeyFunc returns the client IP address as the rate limit key.
// It checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func IPKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port)
	addr := r.RemoteAddr
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}

// Config configures the rate limit middleware.
type Config struct {
	// Limiter decides admission per key. Required.
	Limiter KeyAllower

	// KeyFunc extracts the rate limit key from requests.
	// Defaults to IPKeyFunc.
	KeyFunc KeyFunc

	// RetryAfter is the value for the Retry-After header in seconds.
	// Defaults to 1.
	RetryAfter int

	// Skip returns true to skip rate limiting for a request.
	// Useful for health checks and metrics endpoints.
	Skip func(r *http.Request) bool
}

// Middleware returns HTTP middleware that applies rate limiting and answers
// throttled requests with the service's JSON error envelope.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPKeyFunc
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = 1
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			if !cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(cfg.RetryAfter))
				httputil.JSONError(w, http.StatusTooManyRequests,
					"too_many_requests",
					"Rate limit exceeded; slow down",
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
