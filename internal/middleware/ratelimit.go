package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"diagramgen/internal/httputil"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = 10 * time.Minute
)

// RateLimiter enforces per-client-IP token buckets.
// A limiter with rpm <= 0 allows everything.
type RateLimiter struct {
	limiters sync.Map   // client IP -> *limiterEntry
	r        rate.Limit // refill rate (requests per second)
	rpm      int
	burst    int
	proxies  *httputil.TrustedProxies
	logger   *slog.Logger
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// NewRateLimiter creates a limiter allowing rpm requests per minute with the
// given burst. Clients are keyed by socket peer unless the peer is one of
// proxies. Idle entries are dropped until ctx is cancelled.
func NewRateLimiter(ctx context.Context, rpm, burst int, proxies *httputil.TrustedProxies, logger *slog.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 5
	}
	r := rate.Limit(0)
	if rpm > 0 {
		r = rate.Limit(float64(rpm) / 60.0)
	}
	rl := &RateLimiter{r: r, rpm: rpm, burst: burst, proxies: proxies, logger: logger, now: time.Now}

	if rl.Enabled() {
		go rl.cleanupLoop(ctx)
	}
	return rl
}

// Enabled returns true if the rate limiter is active
func (rl *RateLimiter) Enabled() bool {
	return rl.r > 0
}

// Allow reports whether a request from key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.Enabled() {
		return true
	}
	entry := rl.getOrCreate(key)
	entry.lastSeen.Store(rl.now().UnixNano())
	return entry.limiter.AllowN(rl.now(), 1)
}

// Middleware answers 429 problem+json once a client IP exhausts its bucket
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if !rl.Enabled() {
		return next
	}

	// Seconds until one token refills
	retryAfter := strconv.Itoa((60 + rl.rpm - 1) / rl.rpm)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.proxies.ClientIP(r)
		if !rl.Allow(ip) {
			rl.logger.Warn("rate limited", "client_ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfter)
			httputil.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) getOrCreate(key string) *limiterEntry {
	if v, ok := rl.limiters.Load(key); ok {
		return v.(*limiterEntry)
	}
	entry := &limiterEntry{limiter: rate.NewLimiter(rl.r, rl.burst)}
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry)
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-limiterIdleTTL).UnixNano()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}
