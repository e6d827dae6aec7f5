package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/postcoach/postcoach/internal/analysis"
	"github.com/postcoach/postcoach/internal/api/response"
)

// Briefer defines the interface the brief handler depends on.
type Briefer interface {
	Brief(ctx context.Context, p analysis.AnalyzeParams) (json.RawMessage, error)
}

// NewBriefHandler returns an http.HandlerFunc for GET /api/v1/brief.
func NewBriefHandler(svc Briefer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, ok := subjectParams(w, r)
		if !ok {
			return
		}

		brief, err := svc.Brief(r.Context(), params)
		if err != nil {
			if errors.Is(err, analysis.ErrNoWeeklyBrief) {
				response.Error(w, http.StatusNotFound, "NO_BRIEF",
					"The analysis has no weekly brief", nil)
				return
			}
			writePipelineError(w, err)
			return
		}

		response.JSON(w, json.RawMessage(brief))
	}
}
