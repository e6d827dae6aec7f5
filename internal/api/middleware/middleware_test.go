package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/postcoach/postcoach/internal/api/middleware"
	"github.com/postcoach/postcoach/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubChecker struct {
	result   models.RateLimitResult
	limit    int
	endpoint string
	id       string
}

func (s *stubChecker) Check(_ context.Context, identifier, endpoint string) models.RateLimitResult {
	s.id = identifier
	s.endpoint = endpoint
	return s.result
}

func (s *stubChecker) Limit() int { return s.limit }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowedSetsHeaders(t *testing.T) {
	resetAt := time.Date(2026, 8, 1, 12, 1, 0, 0, time.UTC)
	checker := &stubChecker{
		result: models.RateLimitResult{Allowed: true, Remaining: 7, ResetAt: resetAt},
		limit:  10,
	}
	rl := middleware.NewRateLimit(checker)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze?fid=42", nil)
	req.RemoteAddr = "10.0.0.7:52312"
	rec := httptest.NewRecorder()

	rl.Limit("analyze")(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "7", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2026-08-01T12:01:00Z", rec.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, "10.0.0.7", checker.id)
	assert.Equal(t, "analyze", checker.endpoint)
}

func TestRateLimit_DeniedReturns429(t *testing.T) {
	checker := &stubChecker{
		result: models.RateLimitResult{Allowed: false, Remaining: 0, ResetAt: time.Now().Add(30 * time.Second)},
		limit:  10,
	}
	rl := middleware.NewRateLimit(checker)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze?fid=42", nil)
	rec := httptest.NewRecorder()

	rl.Limit("analyze")(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, called, "handler must not run when denied")
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, rec.Body.String(), "reset_at")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded for single", "203.0.113.9", "", "10.0.0.1:1234", "203.0.113.9"},
		{"forwarded for chain", "203.0.113.9, 70.41.3.18, 150.172.238.178", "", "10.0.0.1:1234", "203.0.113.9"},
		{"real ip", "", "203.0.113.9", "10.0.0.1:1234", "203.0.113.9"},
		{"remote addr", "", "", "10.0.0.1:1234", "10.0.0.1"},
		{"remote addr without port", "", "", "10.0.0.1", "10.0.0.1"},
		{"nothing", "", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			assert.Equal(t, tt.want, middleware.ClientIP(req))
		})
	}
}

func TestAdminAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-token"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := middleware.NewAdminAuth(string(hash))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer correct-token", http.StatusOK},
		{"case insensitive scheme", "bearer correct-token", http.StatusOK},
		{"wrong token", "Bearer wrong-token", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic correct-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			auth.Require(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	middleware.Recovery(panicking).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLogger_PassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	middleware.Logger(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
