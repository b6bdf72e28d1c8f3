package shield

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig bounds mutating requests per client IP.
type RateLimitConfig struct {
	// MaxRequests per Window. Zero disables the limiter.
	MaxRequests int
	Window      time.Duration

	Logger *slog.Logger
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window limiter keyed by client IP. Only methods
// that change state (POST, PUT, PATCH, DELETE) are counted.
type RateLimiter struct {
	cfg     RateLimitConfig
	buckets sync.Map
	now     func() time.Time
}

// NewRateLimiter creates a limiter. Call StartGC to drop expired buckets.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RateLimiter{cfg: cfg, now: time.Now}
}

// StartGC drops expired buckets every window until ctx is done.
func (rl *RateLimiter) StartGC(ctx context.Context) {
	tick := time.NewTicker(rl.cfg.Window)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				rl.gc()
			}
		}
	}()
}

func (rl *RateLimiter) gc() {
	now := rl.now()
	rl.buckets.Range(func(key, value any) bool {
		if now.After(value.(*bucket).resetAt) {
			rl.buckets.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	if rl.cfg.MaxRequests <= 0 {
		return true
	}
	now := rl.now()
	val, loaded := rl.buckets.LoadOrStore(ip, &bucket{count: 1, resetAt: now.Add(rl.cfg.Window)})
	if !loaded {
		return true
	}
	b := val.(*bucket)
	if now.After(b.resetAt) {
		b.count = 1
		b.resetAt = now.Add(rl.cfg.Window)
		return true
	}
	b.count++
	return b.count <= rl.cfg.MaxRequests
}

// Middleware enforces the limit with a 429 JSON response.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	retry := strconv.Itoa(int(rl.cfg.Window.Seconds()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		ip := ExtractIP(r)
		if rl.allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		rl.cfg.Logger.Warn("shield: rate limit exceeded", "ip", ip, "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Retry-After", retry)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
