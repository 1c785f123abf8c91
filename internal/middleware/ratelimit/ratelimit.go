// Package ratelimit throttles requests per client with a fixed one-minute
// window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"bilancio/internal/cache"
)

const window = time.Minute

// Limiter counts requests per client key. Counters live in an LRU cache so
// memory stays bounded however many clients show up.
type Limiter struct {
	counters          *cache.LRUCache[int]
	requestsPerMinute int
	rejected          atomic.Int64
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// MaxClients bounds how many client windows are tracked at once.
	MaxClients int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	return &Limiter{
		counters:          cache.NewLRUCache[int](config.MaxClients, window),
		requestsPerMinute: config.RequestsPerMinute,
	}
}

// WithClock replaces the time source. Used by tests.
func (rl *Limiter) WithClock(now func() time.Time) *Limiter {
	rl.counters.WithClock(now)
	return rl
}

// Cache exposes the counter cache so a cache.Manager can clean it.
func (rl *Limiter) Cache() *cache.LRUCache[int] {
	return rl.counters
}

// Allow reports whether another request from client fits in its window.
func (rl *Limiter) Allow(client string) bool {
	n := rl.counters.Update(client, func(old int, _ bool) int { return old + 1 })
	if n > rl.requestsPerMinute {
		rl.rejected.Add(1)
		return false
	}
	return true
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.counters.Size()
}

// Rejected returns how many requests were refused so far.
func (rl *Limiter) Rejected() int64 {
	return rl.rejected.Load()
}

// Middleware creates HTTP middleware for rate limiting
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
