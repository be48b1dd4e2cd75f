package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/storage"
	"github.com/phrazzld/taskboard/internal/store"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTxDB returns a sqlx.DB whose only job is to begin, commit and roll back
// transactions for RunInTransaction. The stores below ignore the tx.
func newTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "sqlmock"), mock
}

func strPtr(s string) *string { return &s }

type fakeCategoryStore struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]*domain.Category
	inUse     map[int64]bool
	getErr    error
	createErr error
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{rows: map[int64]*domain.Category{}, inUse: map[int64]bool{}}
}

func (f *fakeCategoryStore) add(name string) *domain.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &domain.Category{ID: f.nextID, Name: name}
	f.rows[c.ID] = c
	return c
}

func (f *fakeCategoryStore) List(_ context.Context) ([]*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Category, 0, len(f.rows))
	for _, c := range f.rows {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCategoryStore) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.rows[id]
	if !ok {
		return nil, store.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategoryStore) nameTaken(name string, except int64) bool {
	for _, c := range f.rows {
		if c.Name == name && c.ID != except {
			return true
		}
	}
	return false
}

func (f *fakeCategoryStore) Create(_ context.Context, c *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.nameTaken(c.Name, 0) {
		return store.ErrCategoryNameExists
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCategoryStore) Update(_ context.Context, c *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[c.ID]; !ok {
		return store.ErrCategoryNotFound
	}
	if f.nameTaken(c.Name, c.ID) {
		return store.ErrCategoryNameExists
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCategoryStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return store.ErrCategoryNotFound
	}
	if f.inUse[id] {
		return store.ErrCategoryInUse
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeCategoryStore) WithTx(_ *sqlx.Tx) store.CategoryStore { return f }

type fakeTaskStore struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[int64]*domain.Task
	categories *fakeCategoryStore
	createErr  error
	updateErr  error
	listErr    error
	lastFilter store.TaskFilter
}

func newFakeTaskStore(categories *fakeCategoryStore) *fakeTaskStore {
	return &fakeTaskStore{rows: map[int64]*domain.Task{}, categories: categories}
}

func (f *fakeTaskStore) withCategory(t *domain.Task) *domain.Task {
	cp := *t
	if c, ok := f.categories.rows[t.CategoryID]; ok {
		cp.Category = &domain.CategoryRef{ID: c.ID, Name: c.Name}
	}
	return &cp
}

func (f *fakeTaskStore) List(_ context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*domain.Task{}
	for _, t := range f.rows {
		if filter.CategoryID != nil && t.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.NameContains != "" &&
			!strings.Contains(strings.ToLower(t.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		out = append(out, f.withCategory(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return f.withCategory(t), nil
}

func (f *fakeTaskStore) Create(_ context.Context, t *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	t.ID = f.nextID
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeTaskStore) Update(_ context.Context, t *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rows[t.ID]; !ok {
		return store.ErrTaskNotFound
	}
	cp := *t
	cp.Category = nil
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeTaskStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeTaskStore) WithTx(_ *sqlx.Tx) store.TaskStore { return f }

// seed inserts a task directly.
func (f *fakeTaskStore) seed(name string, categoryID int64, image *string) *domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := &domain.Task{
		ID:         f.nextID,
		Name:       name,
		StartDate:  domain.NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:    domain.NewDate(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		CategoryID: categoryID,
		Image:      image,
	}
	f.rows[t.ID] = t
	return t
}

// recordingBucket wraps a LocalBucket and records the order of operations.
type recordingBucket struct {
	*storage.LocalBucket
	mu     sync.Mutex
	ops    []string
	putErr error
}

func newRecordingBucket(t *testing.T) *recordingBucket {
	t.Helper()
	b, err := storage.NewLocalBucket(t.TempDir(), discardLogger())
	require.NoError(t, err)
	return &recordingBucket{LocalBucket: b}
}

func (b *recordingBucket) record(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, op)
}

func (b *recordingBucket) Put(
	ctx context.Context,
	dir, ext string,
	r io.Reader,
	size int64,
	contentType string,
) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	p, err := b.LocalBucket.Put(ctx, dir, ext, r, size, contentType)
	b.record("put " + p)
	return p, err
}

func (b *recordingBucket) Delete(ctx context.Context, p string) error {
	b.record("delete " + p)
	return b.LocalBucket.Delete(ctx, p)
}

func (b *recordingBucket) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

// seedImage stores data in the bucket and returns its path.
func (b *recordingBucket) seedImage(t *testing.T, data []byte) string {
	t.Helper()
	p, err := b.LocalBucket.Put(context.Background(), storage.ImageDir, "png", strings.NewReader(string(data)), int64(len(data)), "image/png")
	require.NoError(t, err)
	return p
}

func (b *recordingBucket) mustExist(t *testing.T, p string, want bool) {
	t.Helper()
	ok, err := b.LocalBucket.Exists(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, want, ok, fmt.Sprintf("object %s existence", p))
}

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{rows: map[int64]*domain.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.Email == u.Email {
			return store.ErrEmailExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.rows[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, u := range f.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) WithTx(_ *sqlx.Tx) store.UserStore { return f }

type fakeTokenStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[uuid.UUID]*domain.AccessToken
	touched map[uuid.UUID]time.Time
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		rows:    map[uuid.UUID]*domain.AccessToken{},
		touched: map[uuid.UUID]time.Time{},
	}
}

func (f *fakeTokenStore) Create(_ context.Context, tok *domain.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tok.ID = f.nextID
	cp := *tok
	f.rows[tok.TokenID] = &cp
	return nil
}

func (f *fakeTokenStore) GetByTokenID(_ context.Context, id uuid.UUID) (*domain.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.rows[id]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	cp := *tok
	return &cp, nil
}

func (f *fakeTokenStore) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return store.ErrTokenNotFound
	}
	f.touched[id] = at
	return nil
}

func (f *fakeTokenStore) DeleteAllForUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, tok := range f.rows {
		if tok.UserID == userID {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) WithTx(_ *sqlx.Tx) store.TokenStore { return f }

func (f *fakeTokenStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}
