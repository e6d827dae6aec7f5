// Package ratelimit implements a fixed-window request counter backed by
// shared storage, so the limit holds across server instances.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/postcoach/postcoach/internal/store"
	"github.com/postcoach/postcoach/pkg/models"
)

const (
	defaultRequests = 10
	defaultWindow   = 60 * time.Second
)

// Limiter checks and counts requests per (identifier, endpoint) pair.
//
// The check is a read-modify-write without a storage-level atomic, so two
// concurrent requests in the same window can under-count by one. That is
// acceptable here: the limiter deters abuse, it is not a security boundary.
// On storage failure the limiter fails open and allows the request — a
// persistence outage must not take down all traffic.
type Limiter struct {
	store  store.Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// New creates a Limiter. Non-positive limit or window fall back to the
// defaults (10 requests per 60s).
func New(st store.Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = defaultRequests
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Limiter{
		store:  st,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Limit returns the configured per-window request limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Check records one request for (identifier, endpoint) and reports whether
// it is allowed. A denied request does not advance the counter.
func (l *Limiter) Check(ctx context.Context, identifier, endpoint string) models.RateLimitResult {
	now := l.now().UTC()

	w, err := l.store.GetRateLimit(ctx, identifier, endpoint)
	if errors.Is(err, store.ErrNotFound) {
		nw := &models.RateLimitWindow{
			ID:           uuid.New(),
			Identifier:   identifier,
			Endpoint:     endpoint,
			RequestCount: 1,
			WindowStart:  now,
		}
		if err := l.store.CreateRateLimit(ctx, nw); err != nil {
			return l.failOpen(now, "creating rate limit window", identifier, endpoint, err)
		}
		return models.RateLimitResult{Allowed: true, Remaining: l.limit - 1, ResetAt: now.Add(l.window)}
	}
	if err != nil {
		return l.failOpen(now, "reading rate limit window", identifier, endpoint, err)
	}

	// Stale window: start a new one with this request as its first.
	if now.Sub(w.WindowStart) >= l.window {
		if err := l.store.ResetRateLimit(ctx, w.ID, now); err != nil {
			return l.failOpen(now, "resetting rate limit window", identifier, endpoint, err)
		}
		return models.RateLimitResult{Allowed: true, Remaining: l.limit - 1, ResetAt: now.Add(l.window)}
	}

	resetAt := w.WindowStart.Add(l.window)

	if w.RequestCount >= l.limit {
		return models.RateLimitResult{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	if err := l.store.IncrementRateLimit(ctx, w.ID); err != nil {
		return l.failOpen(now, "incrementing rate limit window", identifier, endpoint, err)
	}
	return models.RateLimitResult{Allowed: true, Remaining: l.limit - w.RequestCount - 1, ResetAt: resetAt}
}

// CleanupExpired deletes windows that ended more than retention ago.
// Returns the number of rows removed.
func (l *Limiter) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := l.now().UTC().Add(-(l.window + retention))
	return l.store.DeleteExpiredRateLimits(ctx, cutoff)
}

func (l *Limiter) failOpen(now time.Time, op, identifier, endpoint string, err error) models.RateLimitResult {
	slog.Warn("rate limit storage failed, allowing request",
		"op", op,
		"identifier", identifier,
		"endpoint", endpoint,
		"error", err,
	)
	return models.RateLimitResult{Allowed: true, Remaining: l.limit - 1, ResetAt: now.Add(l.window)}
}
