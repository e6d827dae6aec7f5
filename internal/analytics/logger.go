// Package analytics records completed analysis runs for reporting.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/postcoach/postcoach/internal/store"
	"github.com/postcoach/postcoach/pkg/models"
)

// Logger writes analysis events. Writes are best-effort: observability must
// never become a point of failure for the request path, so errors are
// logged and swallowed.
type Logger struct {
	store store.Store
}

// NewLogger creates a new analytics Logger.
func NewLogger(st store.Store) *Logger {
	return &Logger{store: st}
}

// Record inserts one analysis event row. Never returns an error.
func (l *Logger) Record(ctx context.Context, fid int64, username string) {
	event := &models.AnalysisEvent{
		ID:        uuid.New(),
		FID:       fid,
		CreatedAt: time.Now().UTC(),
	}
	if username != "" {
		event.Username = &username
	}

	if err := l.store.InsertAnalysisEvent(ctx, event); err != nil {
		slog.Error("failed to log analysis event", "fid", fid, "error", err)
	}
}
