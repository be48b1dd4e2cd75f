package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskboard/internal/api/middleware"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseRequestForm_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(
		`{"name":"Task","description":null,"category_id":3,"done":true}`))
	req.Header.Set("Content-Type", "application/json")

	form, err := parseRequestForm(httptest.NewRecorder(), req)
	require.NoError(t, err)

	assert.Equal(t, "Task", form.String("name"))
	assert.Nil(t, form.Optional("description"))
	assert.Equal(t, "3", form.String("category_id"))
	assert.Equal(t, "true", form.String("done"))
	assert.Equal(t, "", form.String("absent"))
	assert.Nil(t, form.Optional("absent"))
}

func TestParseRequestForm_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	form, err := parseRequestForm(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Empty(t, form.values)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("   "))
	form, err = parseRequestForm(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Empty(t, form.values)
}

func TestParseRequestForm_InvalidJSON(t *testing.T) {
	for _, body := range []string{`{"name":`, `["a"]`, `"text"`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		_, err := parseRequestForm(httptest.NewRecorder(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest, body)
	}
}

func TestParseRequestForm_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxRequestBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	_, err := parseRequestForm(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, ErrRequestTooLarge)
}

func TestParseRequestForm_URLEncoded(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=Task&description="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := parseRequestForm(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "Task", form.String("name"))
	require.NotNil(t, form.Optional("description"))
	assert.Equal(t, "", *form.Optional("description"))
}

func TestParseRequestForm_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Task"))
	part, err := mw.CreateFormFile("image", "a.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	form, err := parseRequestForm(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "Task", form.String("name"))

	upload, done, err := form.Upload("image")
	require.NoError(t, err)
	defer done()
	require.NotNil(t, upload)
	assert.Equal(t, "a.jpg", upload.Filename)
	data, err := io.ReadAll(upload.Content)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	missing, done2, err := form.Upload("other")
	require.NoError(t, err)
	done2()
	assert.Nil(t, missing)
}

func TestGetPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "12", want: 12},
		{raw: "", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "1.5", wantErr: true},
		{raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.raw)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, err := getPathID(req, "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleUserID(t *testing.T) {
	users := &mockUserService{}
	users.On("Authenticate", mock.Anything, "tok").
		Return(&service.Principal{UserID: 7, TokenID: uuid.New()}, nil)

	var got int64
	h := middleware.NewAuthMiddleware(users).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := handleUserID(w, r)
		require.True(t, ok)
		got = id
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(7), got)

	w = httptest.NewRecorder()
	_, ok := handleUserID(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
