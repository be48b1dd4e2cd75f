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

// tasksDateOrderConstraint is the CHECK keeping end_date on or after start_date.
const tasksDateOrderConstraint = "tasks_end_after_start"

// taskRow is the scan target for task queries joined with their category.
type taskRow struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Description  *string        `db:"description"`
	StartDate    domain.Date    `db:"start_date"`
	EndDate      domain.Date    `db:"end_date"`
	CategoryID   int64          `db:"category_id"`
	Image        *string        `db:"image"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CategoryName sql.NullString `db:"category_name"`
}

func (r taskRow) toDomain() *domain.Task {
	t := &domain.Task{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		CategoryID:  r.CategoryID,
		Image:       r.Image,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.CategoryName.Valid {
		t.Category = &domain.CategoryRef{ID: r.CategoryID, Name: r.CategoryName.String}
	}
	return t
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sqlx.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

func selectTasks() squirrel.SelectBuilder {
	return psql.Select(
		"t.id",
		"t.name",
		"t.description",
		"t.start_date",
		"t.end_date",
		"t.category_id",
		"t.image",
		"t.created_at",
		"t.updated_at",
		"c.name AS category_name",
	).
		From("tasks t").
		LeftJoin("categories c ON c.id = t.category_id")
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	q := selectTasks()
	if filter.CategoryID != nil {
		q = q.Where(squirrel.Eq{"t.category_id": *filter.CategoryID})
	}
	if filter.NameContains != "" {
		q = q.Where(squirrel.ILike{"t.name": containsPattern(filter.NameContains)})
	}
	query, args, err := q.OrderBy("t.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task list query: %w", err)
	}

	var rows []taskRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	tasks := make([]*domain.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toDomain())
	}

	log.Debug("tasks listed", slog.Int("count", len(tasks)))
	return tasks, nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := selectTasks().Where(squirrel.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task query: %w", err)
	}

	var row taskRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, MapError(err)
	}

	return row.toDomain(), nil
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query, args, err := psql.Insert("tasks").
		Columns("name", "description", "start_date", "end_date", "category_id", "image", "created_at", "updated_at").
		Values(task.Name, task.Description, task.StartDate, task.EndDate, task.CategoryID, task.Image, task.CreatedAt, task.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task insert: %w", err)
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&task.ID); err != nil {
		return s.mapWriteError(log, "create", task, err)
	}

	log.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.Int64("category_id", task.CategoryID))
	return nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query, args, err := psql.Update("tasks").
		SetMap(map[string]any{
			"name":        task.Name,
			"description": task.Description,
			"start_date":  task.StartDate,
			"end_date":    task.EndDate,
			"category_id": task.CategoryID,
			"image":       task.Image,
			"updated_at":  task.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": task.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return s.mapWriteError(log, "update", task, err)
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task updated", slog.Int64("task_id", task.ID))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Delete("tasks").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

func (s *PostgresTaskStore) mapWriteError(log *slog.Logger, op string, task *domain.Task, err error) error {
	if IsForeignKeyViolation(err) {
		log.Warn("task references unknown category",
			slog.String("operation", op),
			slog.Int64("category_id", task.CategoryID))
		return fmt.Errorf("%w: %v", store.ErrUnknownCategory, err)
	}
	if constraint, ok := checkConstraint(err); ok && constraint == tasksDateOrderConstraint {
		log.Warn("task rejected by date order constraint",
			slog.String("operation", op),
			slog.Int64("task_id", task.ID))
		return domain.NewValidationError("end_date", domain.EndDateBeforeStartMessage)
	}
	log.Error("failed to write task",
		slog.String("operation", op),
		slog.String("error", err.Error()),
		slog.Int64("task_id", task.ID))
	return store.NewStoreError("task", op, "write failed", MapError(err))
}
