package models

import (
	"time"

	"github.com/google/uuid"
)

// RateLimitWindow is the persistent counter for one (identifier, endpoint)
// pair. Exactly one window row is authoritative per pair at any time; the
// limiter resets the row in place when the window rolls over.
type RateLimitWindow struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Identifier   string    `db:"identifier"    json:"identifier"`
	Endpoint     string    `db:"endpoint"      json:"endpoint"`
	RequestCount int       `db:"request_count" json:"request_count"`
	WindowStart  time.Time `db:"window_start"  json:"window_start"`
}

// RateLimitResult is the outcome of a rate-limit check. A denied request is
// a normal result, not an error.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
