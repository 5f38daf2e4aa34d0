package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns limits for anonymous callers
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// PerUserRateLimitConfig returns limits for authenticated principals
func PerUserRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 1000,
		WindowDuration:    time.Minute,
		BurstSize:         50,
	}
}

// normalizeUserConfig fills in a partial per-user config. A nil config
// means the defaults; a config without a burst gets one twentieth of
// the request budget.
func normalizeUserConfig(cfg *RateLimitConfig) *RateLimitConfig {
	if cfg == nil {
		return PerUserRateLimitConfig()
	}
	out := *cfg
	if out.RequestsPerWindow <= 0 {
		out.RequestsPerWindow = PerUserRateLimitConfig().RequestsPerWindow
	}
	if out.WindowDuration <= 0 {
		out.WindowDuration = time.Minute
	}
	if out.BurstSize <= 0 {
		out.BurstSize = max(out.RequestsPerWindow/20, 1)
	}
	return &out
}

// anonymousConfig derives the anonymous allowance from the per-user
// budget: a tenth of the requests and a fifth of the burst.
func anonymousConfig(user *RateLimitConfig) *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: max(user.RequestsPerWindow/10, 1),
		WindowDuration:    user.WindowDuration,
		BurstSize:         max(user.BurstSize/5, 1),
	}
}

// RateLimiter implements a token bucket per key, in process memory.
// Suitable for a single instance; multi-instance deployments use the
// Redis-backed DistributedRateLimiter instead.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     rl.config.RequestsPerWindow + rl.config.BurstSize,
			lastUpdate: time.Now(),
		}
		rl.buckets[key] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate)

	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		maxTokens := rl.config.RequestsPerWindow + rl.config.BurstSize
		if b.tokens > maxTokens {
			b.tokens = maxTokens
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns the number of remaining tokens for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		return rl.config.RequestsPerWindow + rl.config.BurstSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Cleanup removes buckets idle for more than two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// StartCleanup runs Cleanup once per window until ctx is cancelled
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// RateLimitMiddleware applies per-caller rate limits. Authenticated
// principals get the per-user limiter keyed by principal id; anonymous
// requests share the default limiter keyed by client IP.
type RateLimitMiddleware struct {
	userLimiter *RateLimiter
	anonLimiter *RateLimiter
	metrics     *observability.Metrics
}

// NewRateLimitMiddleware creates the in-memory rate limit middleware.
// userConfig sets the per-principal budget (nil for defaults); the
// anonymous budget is derived from it. metrics may be nil.
func NewRateLimitMiddleware(userConfig *RateLimitConfig, metrics *observability.Metrics) *RateLimitMiddleware {
	user := normalizeUserConfig(userConfig)
	return &RateLimitMiddleware{
		userLimiter: NewRateLimiter(user),
		anonLimiter: NewRateLimiter(anonymousConfig(user)),
		metrics:     metrics,
	}
}

// StartCleanup starts background eviction of stale buckets on both
// limiters. It stops when ctx is cancelled.
func (m *RateLimitMiddleware) StartCleanup(ctx context.Context) {
	m.userLimiter.StartCleanup(ctx)
	m.anonLimiter.StartCleanup(ctx)
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, scope, limiter := m.pick(r)

		if !limiter.Allow(key) {
			if m.metrics != nil {
				m.metrics.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(limiter.config.WindowDuration.Seconds())))
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) pick(r *http.Request) (key, scope string, limiter *RateLimiter) {
	if authCtx := GetAuthContext(r); authCtx.Authenticated() {
		return "user:" + authCtx.Principal.ID, "user", m.userLimiter
	}
	return "ip:" + getClientIP(r), "anonymous", m.anonLimiter
}

// getClientIP extracts the client IP, honoring X-Forwarded-For
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
