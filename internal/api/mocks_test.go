package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskboard/internal/api/shared"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/service"
	"github.com/stretchr/testify/mock"
)

type mockTaskService struct {
	mock.Mock
}

func (m *mockTaskService) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskService) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskService) CreateTask(ctx context.Context, in service.TaskInput) (*domain.Task, error) {
	args := m.Called(ctx, in)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskService) UpdateTask(ctx context.Context, id int64, in service.TaskInput) (*domain.Task, error) {
	args := m.Called(ctx, id, in)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTaskService) FilterTasks(ctx context.Context, in service.FilterInput) ([]*domain.Task, error) {
	args := m.Called(ctx, in)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskService) SearchTasks(ctx context.Context, query string) ([]*domain.Task, error) {
	args := m.Called(ctx, query)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

func (m *mockTaskService) ExportTasks(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if fn, ok := args.Get(1).(func(io.Writer)); ok && fn != nil {
		fn(w)
	}
	return args.Error(0)
}

type mockCategoryService struct {
	mock.Mock
}

func (m *mockCategoryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]*domain.Category)
	return cs, args.Error(1)
}

func (m *mockCategoryService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *mockCategoryService) CreateCategory(ctx context.Context, in service.CategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, in)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *mockCategoryService) UpdateCategory(
	ctx context.Context,
	id int64,
	in service.CategoryInput,
) (*domain.Category, error) {
	args := m.Called(ctx, id, in)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *mockCategoryService) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserService) Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*service.LoginResult)
	return res, args.Error(1)
}

func (m *mockUserService) Logout(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserService) Authenticate(ctx context.Context, token string) (*service.Principal, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).(*service.Principal)
	return p, args.Error(1)
}

type mockBucket struct {
	mock.Mock
}

func (m *mockBucket) Put(ctx context.Context, dir, ext string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, dir, ext, r, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockBucket) Delete(ctx context.Context, p string) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockBucket) Exists(ctx context.Context, p string) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *mockBucket) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	args := m.Called(ctx, p)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

// serve routes req through a chi router holding a single route, so URL
// parameters resolve the same way they do in the server.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// withUser marks req as authenticated.
func withUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(shared.WithPrincipal(req.Context(), userID, uuid.New()))
}
