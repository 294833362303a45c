package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64       // token refill rate
	BurstSize         int           // bucket capacity
	ClientExpiration  time.Duration // idle buckets older than this are dropped
	MaxClients        int           // new clients are refused past this count
}

// DefaultRateLimitConfig suits optimize traffic: a search is cheap but not
// free, so sustained rates are kept low.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        10000,
	}
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter is a per-client token bucket limiter.
type RateLimiter struct {
	config  *RateLimitConfig
	logger  logging.Logger
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*tokenBucket
}

// NewRateLimiter creates a limiter. A nil config uses the defaults.
func NewRateLimiter(config *RateLimitConfig, logger logging.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		logger:  logging.OrDefault(logger).With(logging.Component("ratelimit")),
		now:     time.Now,
		clients: make(map[string]*tokenBucket),
	}
}

// Allow takes one token from the client's bucket.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket, ok := rl.clients[clientID]
	if !ok {
		if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
			rl.evictIdle(now)
		}
		if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
			rl.logger.Warn("rate limiter full, rejecting new client",
				logging.String("client", clientID), logging.Count(len(rl.clients)))
			return false
		}
		bucket = &tokenBucket{tokens: float64(rl.config.BurstSize), lastRefill: now}
		rl.clients[clientID] = bucket
	}

	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * rl.config.RequestsPerSecond
	if limit := float64(rl.config.BurstSize); bucket.tokens > limit {
		bucket.tokens = limit
	}
	bucket.lastRefill = now

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

// evictIdle drops buckets idle longer than ClientExpiration. Caller holds mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for id, b := range rl.clients {
		if now.Sub(b.lastRefill) > rl.config.ClientExpiration {
			delete(rl.clients, id)
		}
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// ClientIDFunc is a function that extracts a client identifier from a request
type ClientIDFunc func(*http.Request) string

// RemoteIP identifies clients by the host part of RemoteAddr.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the client's budget with 429.
func RateLimit(limiter *RateLimiter, getClientID ClientIDFunc) func(http.Handler) http.Handler {
	if getClientID == nil {
		getClientID = RemoteIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientID := getClientID(r)
			if !limiter.Allow(clientID) {
				limiter.logger.Warn("rate limit exceeded",
					logging.String("client", clientID), logging.Path(r.URL.Path))
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.config.RequestsPerSecond, 'f', 0, 64))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
