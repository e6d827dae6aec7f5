package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/postcoach/postcoach/internal/api/response"
	"github.com/postcoach/postcoach/pkg/models"
)

// StatsProvider defines the interface the admin stats handler depends on.
type StatsProvider interface {
	Stats(ctx context.Context) (*models.AdminStats, error)
}

// NewAdminStatsHandler returns an http.HandlerFunc for GET /api/v1/admin/stats.
func NewAdminStatsHandler(svc StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to compute stats", nil)
			return
		}
		response.JSON(w, stats)
	}
}

// CacheInvalidator defines the interface the invalidate handler depends on.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context, fid int64) error
}

// NewInvalidateCacheHandler returns an http.HandlerFunc for
// DELETE /api/v1/admin/cache/{fid}.
func NewInvalidateCacheHandler(svc CacheInvalidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid, err := strconv.ParseInt(chi.URLParam(r, "fid"), 10, 64)
		if err != nil || fid <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"fid must be a positive integer", nil)
			return
		}

		if err := svc.InvalidateCache(r.Context(), fid); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to invalidate cache", nil)
			return
		}

		response.JSON(w, map[string]any{"fid": fid, "invalidated": true})
	}
}
