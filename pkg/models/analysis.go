// Package models contains shared data models used across the PostCoach codebase.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CachedAnalysis is one row of the analysis cache. The payload is the
// pipeline's full result stored verbatim; nothing in this service decodes it
// beyond the top-level fields needed for routing.
type CachedAnalysis struct {
	ID        uuid.UUID       `db:"id"            json:"id"`
	FID       int64           `db:"fid"           json:"fid"`
	Username  *string         `db:"username"      json:"username,omitempty"`
	Payload   json.RawMessage `db:"analysis_json" json:"payload"`
	CreatedAt time.Time       `db:"created_at"    json:"created_at"`
	ExpiresAt time.Time       `db:"expires_at"    json:"expires_at"`
}

// AnalysisEvent is one append-only row recording a completed analysis run.
type AnalysisEvent struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	FID       int64     `db:"fid"        json:"fid"`
	Username  *string   `db:"username"   json:"username,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
