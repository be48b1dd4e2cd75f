package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/store"
)

type tokenRow struct {
	ID         int64      `db:"id"`
	UserID     int64      `db:"user_id"`
	TokenID    uuid.UUID  `db:"token_id"`
	Name       string     `db:"name"`
	ExpiresAt  time.Time  `db:"expires_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// PostgresTokenStore implements store.TokenStore over the personal_access_tokens table.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a new PostgreSQL implementation of the TokenStore interface.
func NewPostgresTokenStore(db store.DBTX, logger *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTokenStore{
		db:     db,
		logger: logger.With(slog.String("component", "token_store")),
	}
}

var _ store.TokenStore = (*PostgresTokenStore)(nil)

// WithTx implements store.TokenStore.WithTx
func (s *PostgresTokenStore) WithTx(tx *sqlx.Tx) store.TokenStore {
	return &PostgresTokenStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TokenStore.Create
func (s *PostgresTokenStore) Create(ctx context.Context, token *domain.AccessToken) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Insert("personal_access_tokens").
		Columns("user_id", "token_id", "name", "expires_at", "created_at").
		Values(token.UserID, token.TokenID, token.Name, token.ExpiresAt, token.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build token insert: %w", err)
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&token.ID); err != nil {
		log.Error("failed to record access token",
			slog.String("error", err.Error()),
			slog.Int64("user_id", token.UserID))
		return MapError(err)
	}
	return nil
}

// GetByTokenID implements store.TokenStore.GetByTokenID
func (s *PostgresTokenStore) GetByTokenID(ctx context.Context, tokenID uuid.UUID) (*domain.AccessToken, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Select("id", "user_id", "token_id", "name", "expires_at", "last_used_at", "created_at").
		From("personal_access_tokens").
		Where(squirrel.Eq{"token_id": tokenID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build token query: %w", err)
	}

	var row tokenRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		log.Error("failed to look up access token", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return &domain.AccessToken{
		ID:         row.ID,
		UserID:     row.UserID,
		TokenID:    row.TokenID,
		Name:       row.Name,
		ExpiresAt:  row.ExpiresAt,
		LastUsedAt: row.LastUsedAt,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// Touch implements store.TokenStore.Touch
func (s *PostgresTokenStore) Touch(ctx context.Context, tokenID uuid.UUID, at time.Time) error {
	query, args, err := psql.Update("personal_access_tokens").
		Set("last_used_at", at).
		Where(squirrel.Eq{"token_id": tokenID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build token update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTokenNotFound)
}

// DeleteAllForUser implements store.TokenStore.DeleteAllForUser
func (s *PostgresTokenStore) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Delete("personal_access_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build token delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to revoke access tokens",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("access tokens revoked",
		slog.Int64("user_id", userID),
		slog.Int64("count", n))
	return n, nil
}
