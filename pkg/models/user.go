package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated Farcaster account. Distinct from a subject: a
// user signs in to the app, a subject is the account being analyzed.
type User struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	FID            int64     `db:"fid"             json:"fid"`
	Username       string    `db:"username"        json:"username"`
	DisplayName    *string   `db:"display_name"    json:"display_name,omitempty"`
	PfpURL         *string   `db:"pfp_url"         json:"pfp_url,omitempty"`
	CustodyAddress *string   `db:"custody_address" json:"custody_address,omitempty"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	LastLoginAt    time.Time `db:"last_login_at"   json:"last_login_at"`
}
