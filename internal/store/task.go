package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
)

// TaskFilter narrows TaskStore.List. Zero-valued fields are ignored, so the
// zero TaskFilter selects every task.
type TaskFilter struct {
	// CategoryID restricts results to a single category.
	CategoryID *int64

	// NameContains keeps tasks whose name contains the value, case-insensitively.
	// LIKE wildcards in the value are matched literally.
	NameContains string
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// List returns tasks matching filter ordered by id, each with its
	// category reference populated. An empty result is an empty slice.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// GetByID retrieves a task with its category reference.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// Create inserts task and sets its ID.
	// Returns ErrUnknownCategory if the category does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// Update overwrites every editable column of an existing task, image included.
	// Returns ErrTaskNotFound or ErrUnknownCategory.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sqlx.Tx) TaskStore
}
