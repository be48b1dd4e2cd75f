package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
)

// CategoryStore defines the interface for category data persistence.
type CategoryStore interface {
	// List returns all categories ordered by id.
	List(ctx context.Context) ([]*domain.Category, error)

	// GetByID returns ErrCategoryNotFound if the category does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Category, error)

	// Create inserts category and sets its ID.
	// Returns ErrCategoryNameExists on a duplicate name.
	Create(ctx context.Context, category *domain.Category) error

	// Update returns ErrCategoryNotFound or ErrCategoryNameExists.
	Update(ctx context.Context, category *domain.Category) error

	// Delete returns ErrCategoryNotFound, or ErrCategoryInUse while tasks reference it.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a CategoryStore bound to tx.
	WithTx(tx *sqlx.Tx) CategoryStore
}
