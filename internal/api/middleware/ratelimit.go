package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/postcoach/postcoach/internal/api/response"
	"github.com/postcoach/postcoach/pkg/models"
)

// Checker is the rate-limit decision the middleware depends on.
type Checker interface {
	Check(ctx context.Context, identifier, endpoint string) models.RateLimitResult
	Limit() int
}

// RateLimit applies per-client fixed-window rate limiting.
type RateLimit struct {
	limiter Checker
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(limiter Checker) *RateLimit {
	return &RateLimit{limiter: limiter}
}

// Limit returns middleware that counts requests against the named endpoint,
// keyed by the caller's network address.
func (rl *RateLimit) Limit(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := ClientIP(r)
			res := rl.limiter.Check(r.Context(), identifier, endpoint)

			resetAt := res.ResetAt.UTC().Format(time.RFC3339)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", resetAt)

			if !res.Allowed {
				retryAfter := int(time.Until(res.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Error(w, http.StatusTooManyRequests,
					"RATE_LIMIT_EXCEEDED", "Too many requests",
					map[string]string{"reset_at": resetAt})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the rate-limit identifier for a request: the first
// X-Forwarded-For entry, then X-Real-IP, then the connection's address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
