package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCategoryStore_List(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresCategoryStore(db, discardLogger())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, created_at, updated_at FROM categories ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows(categoryColumns).
			AddRow(1, "Work", nil, now, now).
			AddRow(2, "Home", "chores", now, now))

	categories, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Work", categories[0].Name)
	assert.Nil(t, categories[0].Description)
	assert.Equal(t, "chores", *categories[1].Description)
}

func TestPostgresCategoryStore_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresCategoryStore(db, discardLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE id = $1")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(categoryColumns))

	_, err := s.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, store.ErrCategoryNotFound)
}

func TestPostgresCategoryStore_Create(t *testing.T) {
	insert := regexp.QuoteMeta("INSERT INTO categories (name,description,created_at,updated_at) VALUES ($1,$2,$3,$4) RETURNING id")

	t.Run("created", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresCategoryStore(db, discardLogger())
		c, err := domain.NewCategory("Work", nil, time.Now())
		require.NoError(t, err)

		mock.ExpectQuery(insert).
			WithArgs("Work", nil, c.CreatedAt, c.UpdatedAt).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		require.NoError(t, s.Create(context.Background(), c))
		assert.Equal(t, int64(3), c.ID)
	})

	t.Run("duplicate name", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresCategoryStore(db, discardLogger())
		c, err := domain.NewCategory("Work", nil, time.Now())
		require.NoError(t, err)

		mock.ExpectQuery(insert).WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

		err = s.Create(context.Background(), c)
		assert.ErrorIs(t, err, store.ErrCategoryNameExists)
		assert.True(t, store.IsDuplicateError(err))
	})
}

func TestPostgresCategoryStore_Update(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresCategoryStore(db, discardLogger())
	c, err := domain.NewCategory("Work", nil, time.Now())
	require.NoError(t, err)
	c.ID = 5

	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories SET name = $1, description = $2, updated_at = $3 WHERE id = $4")).
		WithArgs("Work", nil, c.UpdatedAt, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.Update(context.Background(), c), store.ErrCategoryNotFound)
}

func TestPostgresCategoryStore_Delete(t *testing.T) {
	del := regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")

	t.Run("deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresCategoryStore(db, discardLogger())

		mock.ExpectExec(del).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, s.Delete(context.Background(), 1))
	})

	t.Run("referenced by tasks", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresCategoryStore(db, discardLogger())

		mock.ExpectExec(del).WithArgs(int64(1)).
			WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode})

		err := s.Delete(context.Background(), 1)
		assert.ErrorIs(t, err, store.ErrCategoryInUse)
		assert.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewPostgresCategoryStore(db, discardLogger())

		mock.ExpectExec(del).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, s.Delete(context.Background(), 1), store.ErrCategoryNotFound)
	})
}
