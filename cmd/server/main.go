// Package main is the entrypoint for the PostCoach API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postcoach/postcoach/internal/admin"
	"github.com/postcoach/postcoach/internal/analysis"
	"github.com/postcoach/postcoach/internal/analytics"
	"github.com/postcoach/postcoach/internal/api"
	"github.com/postcoach/postcoach/internal/api/handler"
	mw "github.com/postcoach/postcoach/internal/api/middleware"
	"github.com/postcoach/postcoach/internal/api/response"
	"github.com/postcoach/postcoach/internal/cache"
	"github.com/postcoach/postcoach/internal/config"
	"github.com/postcoach/postcoach/internal/pipeline"
	"github.com/postcoach/postcoach/internal/ratelimit"
	"github.com/postcoach/postcoach/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "cache_ttl", cfg.Cache.TTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create pipeline client and store
	pipelineClient := pipeline.NewHTTPClient(cfg.Pipeline.BaseURL, cfg.Pipeline.APIKey, cfg.Pipeline.Timeout)
	pgStore := store.NewPostgresStore(pool)

	// 6. Create services
	events := analytics.NewLogger(pgStore)
	analysisSvc := analysis.NewService(pgStore, pipelineClient, events, cfg.Cache.TTL)
	adminSvc := admin.NewService(pgStore, redisCache, cfg.Admin.StatsCacheTTL)
	limiter := ratelimit.New(pgStore, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// 7. Periodically sweep expired rate limit windows
	go func() {
		ticker := time.NewTicker(cfg.RateLimit.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				removed, err := limiter.CleanupExpired(cleanupCtx, cfg.RateLimit.Retention)
				cancel()
				if err != nil {
					slog.Warn("rate limit cleanup failed", "error", err)
				} else if removed > 0 {
					slog.Info("expired rate limit windows removed", "count", removed)
				}
			}
		}
	}()

	// 8. Build router with dependencies
	deps := api.Dependencies{
		RateLimit:          mw.NewRateLimit(limiter),
		AdminAuth:          mw.NewAdminAuth(cfg.Admin.TokenHash),
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,

		HealthHandler:          healthHandler(pgStore, redisCache),
		AnalyzeHandler:         handler.NewAnalyzeHandler(analysisSvc),
		BriefHandler:           handler.NewBriefHandler(analysisSvc),
		LoginHandler:           handler.NewLoginHandler(pgStore),
		HistoryHandler:         handler.NewHistoryHandler(pgStore),
		AdminStatsHandler:      handler.NewAdminStatsHandler(adminSvc),
		InvalidateCacheHandler: handler.NewInvalidateCacheHandler(analysisSvc),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
