package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/postcoach/postcoach/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Analysis cache. Rows are append-only; GetFreshAnalysis returns the
	// newest row whose expiry is still in the future.
	GetFreshAnalysis(ctx context.Context, fid int64) (*models.CachedAnalysis, error)
	InsertAnalysis(ctx context.Context, entry *models.CachedAnalysis) error
	DeleteAnalyses(ctx context.Context, fid int64) (int64, error)

	// Rate limit windows.
	GetRateLimit(ctx context.Context, identifier, endpoint string) (*models.RateLimitWindow, error)
	CreateRateLimit(ctx context.Context, window *models.RateLimitWindow) error
	ResetRateLimit(ctx context.Context, id uuid.UUID, windowStart time.Time) error
	IncrementRateLimit(ctx context.Context, id uuid.UUID) error
	DeleteExpiredRateLimits(ctx context.Context, olderThan time.Time) (int64, error)

	// Analysis events (append-only).
	InsertAnalysisEvent(ctx context.Context, event *models.AnalysisEvent) error

	// Users.
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	InsertAnalysisHistory(ctx context.Context, viewerFID int64, analyzedFID int64, analyzedUsername *string) error

	// Admin reporting.
	AdminStats(ctx context.Context) (*models.AdminStats, error)
}
