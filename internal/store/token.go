package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
)

// TokenStore persists issued access tokens. A token is valid only while its row exists.
type TokenStore interface {
	// Create records an issued token and sets its ID.
	Create(ctx context.Context, token *domain.AccessToken) error

	// GetByTokenID returns ErrTokenNotFound if the token was revoked or never issued.
	GetByTokenID(ctx context.Context, tokenID uuid.UUID) (*domain.AccessToken, error)

	// Touch sets last_used_at on the token.
	Touch(ctx context.Context, tokenID uuid.UUID, at time.Time) error

	// DeleteAllForUser revokes every token of the user and returns how many were removed.
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)

	// WithTx returns a TokenStore bound to tx.
	WithTx(tx *sqlx.Tx) TokenStore
}
