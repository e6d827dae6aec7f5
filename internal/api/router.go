package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/postcoach/postcoach/internal/api/middleware"
	"github.com/postcoach/postcoach/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit
	AdminAuth *mw.AdminAuth

	CORSAllowedOrigins []string

	HealthHandler          http.HandlerFunc
	AnalyzeHandler         http.HandlerFunc
	BriefHandler           http.HandlerFunc
	LoginHandler           http.HandlerFunc
	HistoryHandler         http.HandlerFunc
	AdminStatsHandler      http.HandlerFunc
	InvalidateCacheHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Rate-limited analysis endpoints
	r.With(deps.RateLimit.Limit("analyze")).
		Get("/api/v1/analyze", orNotImplemented(deps.AnalyzeHandler))
	r.With(deps.RateLimit.Limit("brief")).
		Get("/api/v1/brief", orNotImplemented(deps.BriefHandler))

	// User persistence (the auth flow itself lives in the frontend SDK)
	r.Post("/api/v1/users/login", orNotImplemented(deps.LoginHandler))
	r.Post("/api/v1/users/{fid}/history", orNotImplemented(deps.HistoryHandler))

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(deps.AdminAuth.Require)

		r.Get("/api/v1/admin/stats", orNotImplemented(deps.AdminStatsHandler))
		r.Delete("/api/v1/admin/cache/{fid}", orNotImplemented(deps.InvalidateCacheHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
