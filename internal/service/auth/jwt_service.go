package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the user. The returned
	// token id is the jti claim, which callers persist so the token can be revoked.
	GenerateToken(ctx context.Context, userID int64) (*IssuedToken, error)

	// ValidateToken checks signature and time claims and extracts the claims.
	// It does not consult revocation state.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// IssuedToken is a freshly signed token.
type IssuedToken struct {
	Token     string
	TokenID   uuid.UUID
	ExpiresAt time.Time
}

// Claims represents the validated contents of an access token.
type Claims struct {
	UserID    int64
	TokenID   uuid.UUID
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
