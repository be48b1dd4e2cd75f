package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken records an issued bearer token. A token is honoured only while
// its row exists; logout deletes every row of the user.
type AccessToken struct {
	ID         int64
	UserID     int64
	TokenID    uuid.UUID
	Name       string
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
