// Package analysis holds the cache-backed orchestration in front of the
// external analysis pipeline.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/postcoach/postcoach/internal/pipeline"
	"github.com/postcoach/postcoach/internal/store"
	"github.com/postcoach/postcoach/pkg/models"
)

const defaultCacheTTL = 6 * time.Hour

// ErrNoWeeklyBrief is returned when an analysis payload carries no
// weekly_brief section.
var ErrNoWeeklyBrief = errors.New("analysis has no weekly brief")

// EventRecorder records completed analysis runs. Implementations must be
// best-effort and never return an error to the caller.
type EventRecorder interface {
	Record(ctx context.Context, fid int64, username string)
}

// AnalyzeParams identifies the subject of an analysis request. FID zero
// means only a username is known and the pipeline resolves it.
type AnalyzeParams struct {
	FID          int64
	Username     string
	ForceRefresh bool
}

// AnalyzeResult is a served analysis: the opaque payload plus the resolved
// subject and whether the payload came from cache.
type AnalyzeResult struct {
	FID      int64
	Username string
	Payload  json.RawMessage
	Cached   bool
}

// Service implements the analysis cache and the request orchestration:
// cache lookup, pipeline invocation, cache write-back, event logging.
type Service struct {
	store    store.Store
	pipeline pipeline.Client
	events   EventRecorder
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a new analysis Service. A non-positive ttl falls back
// to the 6 hour default.
func NewService(st store.Store, pl pipeline.Client, events EventRecorder, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		store:    st,
		pipeline: pl,
		events:   events,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Analyze serves an analysis for the given subject: rate limiting has
// already happened upstream; this runs cache -> pipeline -> cache -> event
// log. Cache write and event log failures degrade to an uncached response
// rather than failing the request.
func (s *Service) Analyze(ctx context.Context, p AnalyzeParams) (*AnalyzeResult, error) {
	if p.FID > 0 && !p.ForceRefresh {
		if payload, ok := s.GetCachedAnalysis(ctx, p.FID); ok {
			return &AnalyzeResult{
				FID:      p.FID,
				Username: p.Username,
				Payload:  payload,
				Cached:   true,
			}, nil
		}
	}

	res, err := s.pipeline.Run(ctx, pipeline.Subject{FID: p.FID, Username: p.Username})
	if err != nil {
		return nil, fmt.Errorf("running pipeline: %w", err)
	}

	if err := s.SetCachedAnalysis(ctx, res.FID, res.Username, res.Payload); err != nil {
		slog.Warn("caching analysis failed, serving uncached", "fid", res.FID, "error", err)
	}

	// Fire and forget: the response must never wait on the event log.
	go s.events.Record(context.Background(), res.FID, res.Username)

	return &AnalyzeResult{
		FID:      res.FID,
		Username: res.Username,
		Payload:  res.Payload,
		Cached:   false,
	}, nil
}

// GetCachedAnalysis returns the newest unexpired payload for fid. Storage
// failures are treated as a miss so the caller falls through to the
// pipeline.
func (s *Service) GetCachedAnalysis(ctx context.Context, fid int64) (json.RawMessage, bool) {
	entry, err := s.store.GetFreshAnalysis(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		slog.Warn("cache read failed, treating as miss", "fid", fid, "error", err)
		return nil, false
	}
	return entry.Payload, true
}

// SetCachedAnalysis inserts a new cache row expiring ttl from now. Prior
// rows are left in place; readers always take the newest unexpired one.
func (s *Service) SetCachedAnalysis(ctx context.Context, fid int64, username string, payload json.RawMessage) error {
	now := s.now().UTC()
	entry := &models.CachedAnalysis{
		ID:        uuid.New(),
		FID:       fid,
		Username:  optionalString(username),
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.InsertAnalysis(ctx, entry); err != nil {
		return fmt.Errorf("caching analysis: %w", err)
	}
	return nil
}

// InvalidateCache removes all cache rows for fid.
func (s *Service) InvalidateCache(ctx context.Context, fid int64) error {
	if _, err := s.store.DeleteAnalyses(ctx, fid); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	return nil
}

// Brief serves the weekly-brief slice of an analysis: from cache when the
// cached payload has one, otherwise from a fresh pipeline run. Brief runs
// are not cached, matching the analyze path's ownership of cache writes.
func (s *Service) Brief(ctx context.Context, p AnalyzeParams) (json.RawMessage, error) {
	if p.FID > 0 {
		if payload, ok := s.GetCachedAnalysis(ctx, p.FID); ok {
			if brief := extractWeeklyBrief(payload); brief != nil {
				return brief, nil
			}
		}
	}

	res, err := s.pipeline.Run(ctx, pipeline.Subject{FID: p.FID, Username: p.Username})
	if err != nil {
		return nil, fmt.Errorf("running pipeline: %w", err)
	}

	brief := extractWeeklyBrief(res.Payload)
	if brief == nil {
		return nil, ErrNoWeeklyBrief
	}
	return brief, nil
}

// extractWeeklyBrief peels the weekly_brief field off an otherwise opaque
// payload. Returns nil when the field is absent or null.
func extractWeeklyBrief(payload json.RawMessage) json.RawMessage {
	var probe struct {
		WeeklyBrief json.RawMessage `json:"weekly_brief"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil
	}
	if len(probe.WeeklyBrief) == 0 || string(probe.WeeklyBrief) == "null" {
		return nil
	}
	return probe.WeeklyBrief
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
