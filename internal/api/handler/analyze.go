package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/postcoach/postcoach/internal/analysis"
	"github.com/postcoach/postcoach/internal/api/response"
	"github.com/postcoach/postcoach/internal/pipeline"
)

// Analyzer defines the interface the analyze handler depends on.
type Analyzer interface {
	Analyze(ctx context.Context, p analysis.AnalyzeParams) (*analysis.AnalyzeResult, error)
}

// NewAnalyzeHandler returns an http.HandlerFunc for GET /api/v1/analyze.
func NewAnalyzeHandler(svc Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, ok := subjectParams(w, r)
		if !ok {
			return
		}
		params.ForceRefresh = r.URL.Query().Get("refresh") == "true"

		result, err := svc.Analyze(r.Context(), params)
		if err != nil {
			writePipelineError(w, err)
			return
		}

		response.JSON(w, analyzeResponse{
			FID:      result.FID,
			Username: result.Username,
			Cached:   result.Cached,
			Analysis: result.Payload,
		})
	}
}

type analyzeResponse struct {
	FID      int64           `json:"fid"`
	Username string          `json:"username,omitempty"`
	Cached   bool            `json:"cached"`
	Analysis json.RawMessage `json:"analysis"`
}

// subjectParams parses the fid/username query parameters shared by the
// analyze and brief endpoints, writing the error response on failure.
func subjectParams(w http.ResponseWriter, r *http.Request) (analysis.AnalyzeParams, bool) {
	q := r.URL.Query()
	fidStr := q.Get("fid")
	username := q.Get("username")

	if fidStr == "" && username == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"fid or username query parameter is required", nil)
		return analysis.AnalyzeParams{}, false
	}

	var fid int64
	if fidStr != "" {
		parsed, err := strconv.ParseInt(fidStr, 10, 64)
		if err != nil || parsed <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"fid must be a positive integer", nil)
			return analysis.AnalyzeParams{}, false
		}
		fid = parsed
	}

	return analysis.AnalyzeParams{FID: fid, Username: username}, true
}

// writePipelineError maps pipeline sentinel errors to HTTP statuses.
func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrSubjectNotFound):
		response.Error(w, http.StatusNotFound, "SUBJECT_NOT_FOUND",
			"No Farcaster account found for the given identifier", nil)
	case errors.Is(err, pipeline.ErrPipelineUnavailable):
		response.Error(w, http.StatusBadGateway, "PIPELINE_UNAVAILABLE",
			"The analysis pipeline is not available", nil)
	case errors.Is(err, pipeline.ErrPipelineTimeout):
		response.Error(w, http.StatusGatewayTimeout, "PIPELINE_TIMEOUT",
			"Analysis took too long and was cancelled", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
