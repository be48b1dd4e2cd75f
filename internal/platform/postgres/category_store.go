package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/store"
)

type categoryRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r categoryRow) toDomain() *domain.Category {
	return &domain.Category{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

var categoryColumns = []string{"id", "name", "description", "created_at", "updated_at"}

// PostgresCategoryStore implements the store.CategoryStore interface.
type PostgresCategoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCategoryStore creates a new PostgreSQL implementation of the CategoryStore interface.
func NewPostgresCategoryStore(db store.DBTX, logger *slog.Logger) *PostgresCategoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCategoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "category_store")),
	}
}

var _ store.CategoryStore = (*PostgresCategoryStore)(nil)

// WithTx implements store.CategoryStore.WithTx
func (s *PostgresCategoryStore) WithTx(tx *sqlx.Tx) store.CategoryStore {
	return &PostgresCategoryStore{
		db:     tx,
		logger: s.logger,
	}
}

// List implements store.CategoryStore.List
func (s *PostgresCategoryStore) List(ctx context.Context) ([]*domain.Category, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Select(categoryColumns...).From("categories").OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build category list query: %w", err)
	}

	var rows []categoryRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		log.Error("failed to list categories", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	categories := make([]*domain.Category, 0, len(rows))
	for _, r := range rows {
		categories = append(categories, r.toDomain())
	}
	return categories, nil
}

// GetByID implements store.CategoryStore.GetByID
func (s *PostgresCategoryStore) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Select(categoryColumns...).
		From("categories").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build category query: %w", err)
	}

	var row categoryRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("category not found", slog.Int64("category_id", id))
			return nil, store.ErrCategoryNotFound
		}
		log.Error("failed to get category by ID",
			slog.String("error", err.Error()),
			slog.Int64("category_id", id))
		return nil, MapError(err)
	}
	return row.toDomain(), nil
}

// Create implements store.CategoryStore.Create
func (s *PostgresCategoryStore) Create(ctx context.Context, category *domain.Category) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := category.Validate(); err != nil {
		return err
	}

	query, args, err := psql.Insert("categories").
		Columns("name", "description", "created_at", "updated_at").
		Values(category.Name, category.Description, category.CreatedAt, category.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build category insert: %w", err)
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&category.ID); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrCategoryNameExists, err)
		}
		log.Error("failed to create category", slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Info("category created", slog.Int64("category_id", category.ID))
	return nil
}

// Update implements store.CategoryStore.Update
func (s *PostgresCategoryStore) Update(ctx context.Context, category *domain.Category) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := category.Validate(); err != nil {
		return err
	}

	query, args, err := psql.Update("categories").
		Set("name", category.Name).
		Set("description", category.Description).
		Set("updated_at", category.UpdatedAt).
		Where(squirrel.Eq{"id": category.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build category update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrCategoryNameExists, err)
		}
		log.Error("failed to update category",
			slog.String("error", err.Error()),
			slog.Int64("category_id", category.ID))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCategoryNotFound)
}

// Delete implements store.CategoryStore.Delete
func (s *PostgresCategoryStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Delete("categories").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build category delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("category still referenced by tasks", slog.Int64("category_id", id))
			return fmt.Errorf("%w: %v", store.ErrCategoryInUse, err)
		}
		log.Error("failed to delete category",
			slog.String("error", err.Error()),
			slog.Int64("category_id", id))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrCategoryNotFound); err != nil {
		return err
	}

	log.Info("category deleted", slog.Int64("category_id", id))
	return nil
}
