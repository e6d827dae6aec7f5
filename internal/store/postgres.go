package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postcoach/postcoach/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Analysis Cache ---

// GetFreshAnalysis returns the most recent unexpired cache row for fid.
// Expiry is evaluated against the database clock so that readers agree on
// freshness across server instances.
func (s *PostgresStore) GetFreshAnalysis(ctx context.Context, fid int64) (*models.CachedAnalysis, error) {
	var e models.CachedAnalysis
	err := s.pool.QueryRow(ctx,
		`SELECT id, fid, username, analysis_json, created_at, expires_at
		 FROM postcoach_analysis_cache
		 WHERE fid = $1 AND expires_at > NOW()
		 ORDER BY created_at DESC LIMIT 1`, fid,
	).Scan(&e.ID, &e.FID, &e.Username, &e.Payload, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fresh analysis: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) InsertAnalysis(ctx context.Context, entry *models.CachedAnalysis) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO postcoach_analysis_cache (id, fid, username, analysis_json, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.FID, entry.Username, entry.Payload, entry.CreatedAt, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAnalyses(ctx context.Context, fid int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM postcoach_analysis_cache WHERE fid = $1`, fid)
	if err != nil {
		return 0, fmt.Errorf("delete analyses: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Rate Limits ---

func (s *PostgresStore) GetRateLimit(ctx context.Context, identifier, endpoint string) (*models.RateLimitWindow, error) {
	var w models.RateLimitWindow
	err := s.pool.QueryRow(ctx,
		`SELECT id, identifier, endpoint, request_count, window_start
		 FROM postcoach_rate_limits
		 WHERE identifier = $1 AND endpoint = $2
		 ORDER BY window_start DESC LIMIT 1`, identifier, endpoint,
	).Scan(&w.ID, &w.Identifier, &w.Endpoint, &w.RequestCount, &w.WindowStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) CreateRateLimit(ctx context.Context, window *models.RateLimitWindow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO postcoach_rate_limits (id, identifier, endpoint, request_count, window_start)
		 VALUES ($1, $2, $3, $4, $5)`,
		window.ID, window.Identifier, window.Endpoint, window.RequestCount, window.WindowStart)
	if err != nil {
		return fmt.Errorf("create rate limit: %w", err)
	}
	return nil
}

// ResetRateLimit starts a new window in place: count back to 1, fresh start.
func (s *PostgresStore) ResetRateLimit(ctx context.Context, id uuid.UUID, windowStart time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postcoach_rate_limits SET request_count = 1, window_start = $2 WHERE id = $1`,
		id, windowStart)
	if err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementRateLimit(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postcoach_rate_limits SET request_count = request_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment rate limit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredRateLimits removes windows that started before olderThan.
// Safe to run concurrently with live traffic: it only touches rows that are
// already past their window.
func (s *PostgresStore) DeleteExpiredRateLimits(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM postcoach_rate_limits WHERE window_start < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete expired rate limits: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Analysis Events ---

func (s *PostgresStore) InsertAnalysisEvent(ctx context.Context, event *models.AnalysisEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO postcoach_analysis_events (id, fid, username, created_at)
		 VALUES ($1, $2, $3, $4)`,
		event.ID, event.FID, event.Username, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analysis event: %w", err)
	}
	return nil
}

// --- Users ---

func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	var result models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO postcoach_users (id, fid, username, display_name, pfp_url, custody_address, created_at, last_login_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (fid) DO UPDATE SET
		   username = EXCLUDED.username,
		   display_name = EXCLUDED.display_name,
		   pfp_url = EXCLUDED.pfp_url,
		   custody_address = EXCLUDED.custody_address,
		   last_login_at = EXCLUDED.last_login_at
		 RETURNING id, fid, username, display_name, pfp_url, custody_address, created_at, last_login_at`,
		user.ID, user.FID, user.Username, user.DisplayName, user.PfpURL, user.CustodyAddress,
		user.CreatedAt, user.LastLoginAt,
	).Scan(&result.ID, &result.FID, &result.Username, &result.DisplayName, &result.PfpURL,
		&result.CustodyAddress, &result.CreatedAt, &result.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &result, nil
}

// InsertAnalysisHistory records that the user with viewerFID viewed an
// analysis of analyzedFID. Returns ErrNotFound if no such user exists.
func (s *PostgresStore) InsertAnalysisHistory(ctx context.Context, viewerFID int64, analyzedFID int64, analyzedUsername *string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO postcoach_user_analysis_history (id, user_id, analyzed_fid, analyzed_username, created_at)
		 SELECT $1, id, $3, $4, $5 FROM postcoach_users WHERE fid = $2`,
		uuid.New(), viewerFID, analyzedFID, analyzedUsername, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert analysis history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
