package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/store"
)

// CategoryInput carries the fields of a category create or update request.
type CategoryInput struct {
	Name        string
	Description *string
}

// CategoryService provides category operations.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error)
	// DeleteCategory fails with store.ErrCategoryInUse while tasks reference the category.
	DeleteCategory(ctx context.Context, id int64) error
}

type categoryServiceImpl struct {
	db         *sqlx.DB
	categories store.CategoryStore
	logger     *slog.Logger
	now        func() time.Time
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(db *sqlx.DB, categories store.CategoryStore, logger *slog.Logger) (CategoryService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil")
	}
	if categories == nil {
		return nil, domain.NewValidationError("categories", "cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &categoryServiceImpl{
		db:         db,
		categories: categories,
		logger:     logger.With(slog.String("component", "category_service")),
		now:        time.Now,
	}, nil
}

func (s *categoryServiceImpl) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list categories",
			slog.String("error", err.Error()))
		return nil, NewServiceError("category", "list", "failed to list categories", err)
	}
	return categories, nil
}

func (s *categoryServiceImpl) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		s.logFailure(ctx, "failed to retrieve category", id, err)
		return nil, NewServiceError("category", "get", "failed to retrieve category", err)
	}
	return category, nil
}

func (s *categoryServiceImpl) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	category, err := domain.NewCategory(in.Name, optionalText(in.Description), s.now())
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.categories.WithTx(tx).Create(ctx, category)
	})
	if err != nil {
		s.logFailure(ctx, "failed to create category", 0, err)
		return nil, NewServiceError("category", "create", "failed to save category", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("category created",
		slog.Int64("category_id", category.ID))
	return category, nil
}

func (s *categoryServiceImpl) UpdateCategory(
	ctx context.Context,
	id int64,
	in CategoryInput,
) (*domain.Category, error) {
	var category *domain.Category
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		txCategories := s.categories.WithTx(tx)

		var err error
		category, err = txCategories.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := category.Update(in.Name, optionalText(in.Description), s.now()); err != nil {
			return err
		}
		return txCategories.Update(ctx, category)
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		s.logFailure(ctx, "failed to update category", id, err)
		return nil, NewServiceError("category", "update", "failed to update category", err)
	}
	return category, nil
}

func (s *categoryServiceImpl) DeleteCategory(ctx context.Context, id int64) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.categories.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		s.logFailure(ctx, "failed to delete category", id, err)
		return NewServiceError("category", "delete", "failed to delete category", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("category deleted",
		slog.Int64("category_id", id))
	return nil
}

// logFailure logs unexpected store errors. Expected outcomes such as a
// missing row or a duplicate name are left to the caller.
func (s *categoryServiceImpl) logFailure(ctx context.Context, msg string, id int64, err error) {
	if store.IsNotFoundError(err) || store.IsDuplicateError(err) || errors.Is(err, store.ErrConflict) {
		return
	}
	logger.FromContextOrDefault(ctx, s.logger).Error(msg,
		slog.String("error", err.Error()),
		slog.Int64("category_id", id))
}
