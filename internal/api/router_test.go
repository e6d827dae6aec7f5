package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/postcoach/postcoach/internal/api"
	mw "github.com/postcoach/postcoach/internal/api/middleware"
	"github.com/postcoach/postcoach/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type allowAllChecker struct{}

func (allowAllChecker) Check(_ context.Context, _, _ string) models.RateLimitResult {
	return models.RateLimitResult{Allowed: true, Remaining: 9, ResetAt: time.Now().Add(time.Minute)}
}

func (allowAllChecker) Limit() int { return 10 }

type denyAllChecker struct{}

func (denyAllChecker) Check(_ context.Context, _, _ string) models.RateLimitResult {
	return models.RateLimitResult{Allowed: false, Remaining: 0, ResetAt: time.Now().Add(time.Minute)}
}

func (denyAllChecker) Limit() int { return 10 }

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func testDeps(t *testing.T, checker mw.Checker) api.Dependencies {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-token"), bcrypt.MinCost)
	require.NoError(t, err)

	return api.Dependencies{
		RateLimit:          mw.NewRateLimit(checker),
		AdminAuth:          mw.NewAdminAuth(string(hash)),
		CORSAllowedOrigins: []string{"*"},

		HealthHandler:          okHandler,
		AnalyzeHandler:         okHandler,
		BriefHandler:           okHandler,
		LoginHandler:           okHandler,
		HistoryHandler:         okHandler,
		AdminStatsHandler:      okHandler,
		InvalidateCacheHandler: okHandler,
	}
}

func TestRouter_Routes(t *testing.T) {
	router := api.NewRouter(testDeps(t, allowAllChecker{}))

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{"analyze", http.MethodGet, "/api/v1/analyze?fid=42", "", http.StatusOK},
		{"brief", http.MethodGet, "/api/v1/brief?fid=42", "", http.StatusOK},
		{"login", http.MethodPost, "/api/v1/users/login", "", http.StatusOK},
		{"history", http.MethodPost, "/api/v1/users/42/history", "", http.StatusOK},
		{"admin stats without token", http.MethodGet, "/api/v1/admin/stats", "", http.StatusUnauthorized},
		{"admin stats with token", http.MethodGet, "/api/v1/admin/stats", "Bearer admin-token", http.StatusOK},
		{"invalidate without token", http.MethodDelete, "/api/v1/admin/cache/42", "", http.StatusUnauthorized},
		{"invalidate with token", http.MethodDelete, "/api/v1/admin/cache/42", "Bearer admin-token", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/api/v1/analyze", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouter_RateLimitHeadersOnAnalyze(t *testing.T) {
	router := api.NewRouter(testDeps(t, allowAllChecker{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze?fid=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestRouter_RateLimitedAnalyzeDenied(t *testing.T) {
	router := api.NewRouter(testDeps(t, denyAllChecker{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze?fid=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestRouter_HealthNotRateLimited(t *testing.T) {
	router := api.NewRouter(testDeps(t, denyAllChecker{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_MissingHandlerReturns501(t *testing.T) {
	deps := testDeps(t, allowAllChecker{})
	deps.BriefHandler = nil
	router := api.NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/brief?fid=42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_IMPLEMENTED")
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := api.NewRouter(testDeps(t, allowAllChecker{}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "https://postcoach.app")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
