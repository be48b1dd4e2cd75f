package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/export"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/storage"
	"github.com/phrazzld/taskboard/internal/store"
)

// TaskInput carries the raw task fields of a create or update request.
// Values are parsed and validated by the service.
type TaskInput struct {
	Name        string
	Description *string
	StartDate   string
	EndDate     string
	CategoryID  string
	Image       *Upload
}

// FilterInput carries the raw filter query parameters. Empty values are ignored.
type FilterInput struct {
	CategoryID string
	Name       string
}

// TaskService provides task operations.
type TaskService interface {
	// ListTasks returns every task ordered by id.
	ListTasks(ctx context.Context) ([]*domain.Task, error)

	// GetTask returns a task with its category.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)

	// CreateTask validates in, stores the optional image and inserts the row.
	CreateTask(ctx context.Context, in TaskInput) (*domain.Task, error)

	// UpdateTask validates in and overwrites the task. A new image replaces
	// the previous file, which is deleted first.
	UpdateTask(ctx context.Context, id int64, in TaskInput) (*domain.Task, error)

	// DeleteTask removes the task image, if any, and then the row.
	DeleteTask(ctx context.Context, id int64) error

	// FilterTasks returns tasks of a category and/or whose name contains a value.
	FilterTasks(ctx context.Context, in FilterInput) ([]*domain.Task, error)

	// SearchTasks returns tasks whose name contains query case-insensitively.
	// An empty query matches every task.
	SearchTasks(ctx context.Context, query string) ([]*domain.Task, error)

	// ExportTasks writes every task to w as an xlsx workbook.
	ExportTasks(ctx context.Context, w io.Writer) error
}

type taskServiceImpl struct {
	db         *sqlx.DB
	tasks      store.TaskStore
	categories store.CategoryStore
	bucket     storage.Bucket
	logger     *slog.Logger
	now        func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	db *sqlx.DB,
	tasks store.TaskStore,
	categories store.CategoryStore,
	bucket storage.Bucket,
	logger *slog.Logger,
) (TaskService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil")
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil")
	}
	if categories == nil {
		return nil, domain.NewValidationError("categories", "cannot be nil")
	}
	if bucket == nil {
		return nil, domain.NewValidationError("bucket", "cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		db:         db,
		tasks:      tasks,
		categories: categories,
		bucket:     bucket,
		logger:     logger.With(slog.String("component", "task_service")),
		now:        time.Now,
	}, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.tasks.List(ctx, store.TaskFilter{})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("error", err.Error()))
		return nil, NewServiceError("task", "list", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve task",
				slog.String("error", err.Error()),
				slog.Int64("task_id", id))
		}
		return nil, NewServiceError("task", "get", "failed to retrieve task", err)
	}
	return task, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, in TaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	attrs, img, err := s.validateInput(ctx, s.categories, in)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(attrs, s.now())
	if err != nil {
		return nil, err
	}

	if img != nil {
		p, err := s.storeImage(ctx, in.Image.Filename, img)
		if err != nil {
			return nil, err
		}
		task.Image = &p
	}

	var created *domain.Task
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		if err := txTasks.Create(ctx, task); err != nil {
			return err
		}
		created, err = txTasks.GetByID(ctx, task.ID)
		return err
	})
	if err != nil {
		s.discardImage(ctx, task.Image)
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		if !errors.Is(err, store.ErrInvalidEntity) {
			log.Error("failed to create task",
				slog.String("error", err.Error()))
		}
		return nil, NewServiceError("task", "create", "failed to save task", err)
	}

	log.Info("task created", slog.Int64("task_id", created.ID))
	return created, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, id int64, in TaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		updated  *domain.Task
		newImage *string
	)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		task, err := txTasks.GetByID(ctx, id)
		if err != nil {
			return err
		}

		attrs, img, err := s.validateInput(ctx, s.categories.WithTx(tx), in)
		if err != nil {
			return err
		}
		if err := task.Update(attrs, s.now()); err != nil {
			return err
		}

		if img != nil {
			if task.HasImage() {
				if err := s.bucket.Delete(ctx, *task.Image); err != nil {
					return fmt.Errorf("failed to delete previous image: %w", err)
				}
			}
			p, err := s.storeImage(ctx, in.Image.Filename, img)
			if err != nil {
				return err
			}
			newImage = &p
			task.Image = &p
		}

		if err := txTasks.Update(ctx, task); err != nil {
			return err
		}
		updated, err = txTasks.GetByID(ctx, id)
		return err
	})
	if err != nil {
		s.discardImage(ctx, newImage)
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		if !store.IsNotFoundError(err) && !errors.Is(err, store.ErrInvalidEntity) {
			log.Error("failed to update task",
				slog.String("error", err.Error()),
				slog.Int64("task_id", id))
		}
		return nil, NewServiceError("task", "update", "failed to update task", err)
	}

	log.Info("task updated", slog.Int64("task_id", id))
	return updated, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		task, err := txTasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if task.HasImage() {
			if err := s.bucket.Delete(ctx, *task.Image); err != nil {
				return fmt.Errorf("failed to delete image: %w", err)
			}
		}
		return txTasks.Delete(ctx, id)
	})
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to delete task",
				slog.String("error", err.Error()),
				slog.Int64("task_id", id))
		}
		return NewServiceError("task", "delete", "failed to delete task", err)
	}

	log.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

func (s *taskServiceImpl) FilterTasks(ctx context.Context, in FilterInput) ([]*domain.Task, error) {
	v := &domain.ValidationError{}
	filter := store.TaskFilter{NameContains: strings.TrimSpace(in.Name)}
	if id, ok := parseIDField(v, "category_id", "category id", in.CategoryID); ok {
		filter.CategoryID = &id
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to filter tasks",
			slog.String("error", err.Error()))
		return nil, NewServiceError("task", "filter", "failed to filter tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) SearchTasks(ctx context.Context, query string) ([]*domain.Task, error) {
	tasks, err := s.tasks.List(ctx, store.TaskFilter{NameContains: strings.TrimSpace(query)})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to search tasks",
			slog.String("error", err.Error()))
		return nil, NewServiceError("task", "search", "failed to search tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) ExportTasks(ctx context.Context, w io.Writer) error {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteTasks(w, tasks); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to export tasks",
			slog.String("error", err.Error()))
		return NewServiceError("task", "export", "failed to write workbook", err)
	}
	return nil
}

// validateInput parses in and reports every invalid field at once. The
// category is looked up through categories so updates see their own transaction.
func (s *taskServiceImpl) validateInput(
	ctx context.Context,
	categories store.CategoryStore,
	in TaskInput,
) (domain.TaskAttributes, *storage.Image, error) {
	v := &domain.ValidationError{}

	attrs := domain.TaskAttributes{
		Name:        in.Name,
		Description: optionalText(in.Description),
		StartDate:   parseDateField(v, "start_date", "start date", in.StartDate),
		EndDate:     parseDateField(v, "end_date", "end date", in.EndDate),
	}
	categoryID, parsed := parseIDField(v, "category_id", "category id", in.CategoryID)
	if parsed && categoryID <= 0 {
		v.Add("category_id", "The selected category id is invalid.")
		parsed = false
	}
	attrs.CategoryID = categoryID

	if err := mergeMissing(v, (&domain.Task{
		Name:        strings.TrimSpace(attrs.Name),
		Description: attrs.Description,
		StartDate:   attrs.StartDate,
		EndDate:     attrs.EndDate,
		CategoryID:  attrs.CategoryID,
	}).Validate()); err != nil {
		return attrs, nil, err
	}

	if parsed {
		if _, err := categories.GetByID(ctx, categoryID); err != nil {
			if !store.IsNotFoundError(err) {
				return attrs, nil, fmt.Errorf("failed to check category: %w", err)
			}
			v.Add("category_id", "The selected category id is invalid.")
		}
	}

	var img *storage.Image
	if in.Image != nil {
		var err error
		img, err = storage.ReadImage(in.Image.Filename, in.Image.Content)
		switch {
		case errors.Is(err, storage.ErrUnsupportedImage):
			v.Add("image", "The image must be a file of type: jpg, jpeg, png.")
		case errors.Is(err, storage.ErrImageTooLarge):
			v.Add("image", "The image may not be greater than 2048 kilobytes.")
		case err != nil:
			return attrs, nil, err
		}
	}

	if err := v.Err(); err != nil {
		return attrs, nil, err
	}
	return attrs, img, nil
}

// storeImage writes img under ImageDir keeping the client's extension.
func (s *taskServiceImpl) storeImage(ctx context.Context, filename string, img *storage.Image) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = img.Ext
	}
	p, err := s.bucket.Put(ctx, storage.ImageDir, ext, img.Reader(), img.Size(), img.ContentType)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to store image",
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return p, nil
}

// discardImage removes an image stored by a request that then failed.
func (s *taskServiceImpl) discardImage(ctx context.Context, p *string) {
	if p == nil || *p == "" {
		return
	}
	if err := s.bucket.Delete(ctx, *p); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to remove orphaned image",
			slog.String("error", err.Error()),
			slog.String("path", *p))
	}
}
