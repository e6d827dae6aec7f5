package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/postcoach/postcoach/internal/api/response"
	"github.com/postcoach/postcoach/internal/store"
	"github.com/postcoach/postcoach/pkg/models"
)

// UserStore defines the store operations the user handlers depend on.
type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	InsertAnalysisHistory(ctx context.Context, viewerFID int64, analyzedFID int64, analyzedUsername *string) error
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/users/login.
// It records the account the out-of-scope auth flow has already verified.
func NewLoginHandler(st UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FID            int64   `json:"fid"`
			Username       string  `json:"username"`
			DisplayName    *string `json:"display_name"`
			PfpURL         *string `json:"pfp_url"`
			CustodyAddress *string `json:"custody_address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.FID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "fid must be a positive integer", nil)
			return
		}
		if req.Username == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "username is required", nil)
			return
		}

		now := time.Now().UTC()
		user, err := st.UpsertUser(r.Context(), &models.User{
			ID:             uuid.New(),
			FID:            req.FID,
			Username:       req.Username,
			DisplayName:    req.DisplayName,
			PfpURL:         req.PfpURL,
			CustodyAddress: req.CustodyAddress,
			CreatedAt:      now,
			LastLoginAt:    now,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to record login", nil)
			return
		}

		response.JSON(w, user)
	}
}

// NewHistoryHandler returns an http.HandlerFunc for
// POST /api/v1/users/{fid}/history.
func NewHistoryHandler(st UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerFID, err := strconv.ParseInt(chi.URLParam(r, "fid"), 10, 64)
		if err != nil || viewerFID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"fid must be a positive integer", nil)
			return
		}

		var req struct {
			AnalyzedFID      int64   `json:"analyzed_fid"`
			AnalyzedUsername *string `json:"analyzed_username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.AnalyzedFID <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"analyzed_fid must be a positive integer", nil)
			return
		}

		err = st.InsertAnalysisHistory(r.Context(), viewerFID, req.AnalyzedFID, req.AnalyzedUsername)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "USER_NOT_FOUND",
				"No user with the given fid", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to record history", nil)
			return
		}

		response.Created(w, map[string]any{
			"fid":          viewerFID,
			"analyzed_fid": req.AnalyzedFID,
		})
	}
}
