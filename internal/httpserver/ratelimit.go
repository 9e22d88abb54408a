package httpserver

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/userctx"
	"golang.org/x/time/rate"
)

// limiterStore hands out one token bucket per client key.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	calls    atomic.Int64
}

func newLimiterStore(limit rate.Limit, burst int) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(s.limit, s.burst)
		s.limiters[key] = lim
	}

	if s.calls.Add(1)%1000 == 0 {
		s.evictIdle()
	}
	return lim
}

// evictIdle drops clients whose bucket has refilled completely.
func (s *limiterStore) evictIdle() {
	for key, lim := range s.limiters {
		if lim.Tokens() >= float64(s.burst) {
			delete(s.limiters, key)
		}
	}
}

// RateLimitMiddleware limits every request per client. It runs after auth,
// so signed-in users get their own bucket regardless of the address they
// come from. RATE_LIMIT_RPS <= 0 disables it.
func RateLimitMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	if cfg.RateLimitRPS <= 0 {
		return next
	}

	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = cfg.RateLimitRPS
	}

	store := newLimiterStore(rate.Limit(cfg.RateLimitRPS), burst)
	return limitHandler(store, "rate_limited", "Too many requests", next)
}

// UploadRateLimit guards image uploads, which cost far more than the JSON
// endpoints, with a per-minute budget of its own.
func UploadRateLimit(cfg *config.Config, next http.Handler) http.Handler {
	if cfg.UploadRateLimitPerMin <= 0 {
		return next
	}

	burst := cfg.UploadRateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	store := newLimiterStore(rate.Every(time.Minute/time.Duration(cfg.UploadRateLimitPerMin)), burst)
	return limitHandler(store, "upload_rate_limited", "Too many image uploads", next)
}

func limitHandler(store *limiterStore, code, message string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := store.get(clientKey(r)).Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    code,
					"message": message,
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey is the authenticated user, or the client address for anonymous
// requests.
func clientKey(r *http.Request) string {
	if userID, ok := userctx.GetUserID(r.Context()); ok {
		return "user:" + userID
	}
	return "ip:" + extractIP(r)
}

func extractIP(r *http.Request) string {
	// First hop of X-Forwarded-For when behind a proxy.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
