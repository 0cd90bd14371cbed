package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/pkg/response"
)

// clientLimit tracks rate limit state for a single client
type clientLimit struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimiter implements token bucket rate limiting per client IP
type RateLimiter struct {
	limits     map[string]*clientLimit
	mu         sync.RWMutex
	maxTokens  float64 // Maximum tokens in bucket
	refillRate float64 // Tokens added per second
	logger     *zap.Logger
}

// NewRateLimiter creates a new rate limiter. Burst is the bucket size, so a
// quiet client can fire that many requests back to back before the
// per-minute rate applies.
func NewRateLimiter(requestsPerMinute, burst int, logger *zap.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limits:     make(map[string]*clientLimit),
		maxTokens:  float64(burst),
		refillRate: float64(requestsPerMinute) / 60.0, // tokens per second
		logger:     logger,
	}

	// Start cleanup goroutine to remove inactive clients
	go rl.cleanupInactiveClients()

	return rl
}

// Handler wraps next with the rate limit check.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)

		if !rl.allowRequest(client) {
			rl.logger.Warn("rate limit exceeded",
				zap.String("client", client),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			response.Error(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowRequest checks if request is allowed under rate limit
func (rl *RateLimiter) allowRequest(client string) bool {
	rl.mu.Lock()
	limit, exists := rl.limits[client]
	if !exists {
		limit = &clientLimit{
			tokens:     rl.maxTokens,
			lastRefill: time.Now(),
		}
		rl.limits[client] = limit
	}
	rl.mu.Unlock()

	limit.mu.Lock()
	defer limit.mu.Unlock()

	now := time.Now()

	// Refill tokens based on elapsed time
	elapsed := now.Sub(limit.lastRefill).Seconds()
	limit.tokens += elapsed * rl.refillRate
	if limit.tokens > rl.maxTokens {
		limit.tokens = rl.maxTokens
	}
	limit.lastRefill = now

	if limit.tokens >= 1.0 {
		limit.tokens -= 1.0
		return true
	}

	return false
}

// cleanupInactiveClients removes clients that haven't sent requests in 1 hour
func (rl *RateLimiter) cleanupInactiveClients() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		inactiveThreshold := 1 * time.Hour

		for client, limit := range rl.limits {
			limit.mu.Lock()
			if now.Sub(limit.lastRefill) > inactiveThreshold {
				delete(rl.limits, client)
			}
			limit.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

// clientAddr picks the client key: first hop of X-Forwarded-For when a proxy
// set it, otherwise the connection's remote host.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
