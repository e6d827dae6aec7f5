// Package admin serves the aggregate reports behind the admin panel.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/postcoach/postcoach/internal/cache"
	"github.com/postcoach/postcoach/internal/store"
	"github.com/postcoach/postcoach/pkg/models"
)

const defaultStatsCacheTTL = 60 * time.Second

// Service computes admin stats, caching the response in Redis for a short
// TTL since the aggregation touches every table.
type Service struct {
	store store.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewService creates a new admin Service. A non-positive ttl falls back to
// the 60 second default.
func NewService(st store.Store, ca cache.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultStatsCacheTTL
	}
	return &Service{store: st, cache: ca, ttl: ttl}
}

// Stats returns the admin aggregates, served from Redis when a cached copy
// is still live. Redis failures are logged and bypassed.
func (s *Service) Stats(ctx context.Context) (*models.AdminStats, error) {
	if raw, found, err := s.cache.Get(ctx, cache.AdminStatsKey()); err == nil && found {
		var stats models.AdminStats
		if err := json.Unmarshal(raw, &stats); err == nil {
			return &stats, nil
		}
		// Unreadable cached value: fall through and recompute.
	} else if err != nil {
		slog.Warn("stats cache read failed", "error", err)
	}

	stats, err := s.store.AdminStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing admin stats: %w", err)
	}

	if raw, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, cache.AdminStatsKey(), raw, s.ttl); err != nil {
			slog.Warn("stats cache write failed", "error", err)
		}
	}

	return stats, nil
}
