package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskboard/internal/api/middleware"
	"github.com/phrazzld/taskboard/internal/api/shared"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/service"
)

const (
	// maxRequestBytes bounds request bodies. It sits well above the image
	// limit so oversized images still reach validation and get a 422.
	maxRequestBytes = 10 << 20

	// multipartMemory is how much of a multipart body is held in memory
	// before file parts spill to disk.
	multipartMemory = 4 << 20
)

// requestForm holds the fields of a JSON, urlencoded or multipart body.
// A field present with a null value maps to a nil pointer.
type requestForm struct {
	values map[string]*string
	files  map[string]*multipart.FileHeader
}

// parseRequestForm reads the body according to its Content-Type. An empty
// body yields an empty form so missing fields surface as validation errors.
func parseRequestForm(w http.ResponseWriter, r *http.Request) (*requestForm, error) {
	form := &requestForm{
		values: map[string]*string{},
		files:  map[string]*multipart.FileHeader{},
	}
	if r.Body == nil || r.Body == http.NoBody {
		return form, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	switch {
	case shared.IsMultipart(r):
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err)
		}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				v := vals[0]
				form.values[key] = &v
			}
		}
		for key, headers := range r.MultipartForm.File {
			if len(headers) > 0 && headers[0].Filename != "" {
				form.files[key] = headers[0]
			}
		}
	case shared.IsFormEncoded(r):
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for key, vals := range r.PostForm {
			if len(vals) > 0 {
				v := vals[0]
				form.values[key] = &v
			}
		}
	default:
		if err := form.decodeJSON(r.Body); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func (f *requestForm) decodeJSON(body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return bodyError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for key, msg := range raw {
		trimmed := bytes.TrimSpace(msg)
		switch {
		case bytes.Equal(trimmed, []byte("null")):
			f.values[key] = nil
		case len(trimmed) > 0 && trimmed[0] == '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrInvalidRequest, key, err)
			}
			f.values[key] = &s
		default:
			// Numbers and booleans keep their literal text, so {"category_id": 3} reads as "3".
			s := string(trimmed)
			f.values[key] = &s
		}
	}
	return nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit %d bytes", ErrRequestTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}

// String returns the field value, or "" when absent or null.
func (f *requestForm) String(key string) string {
	if v := f.values[key]; v != nil {
		return *v
	}
	return ""
}

// Optional returns the field value, or nil when absent or null.
func (f *requestForm) Optional(key string) *string {
	return f.values[key]
}

// Upload opens the file part named key. The returned close function must be
// called once the upload has been consumed; it is a no-op when no file was sent.
func (f *requestForm) Upload(key string) (*service.Upload, func(), error) {
	header, ok := f.files[key]
	if !ok {
		return nil, func() {}, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open upload: %w", err)
	}
	return &service.Upload{Filename: header.Filename, Content: file}, func() { _ = file.Close() }, nil
}

// getPathID extracts a positive integer id from the URL path parameter.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// handlePathID writes a 400 response and returns false when the id path
// parameter is not a positive integer.
func handlePathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := getPathID(r, "id")
	if err != nil {
		logger.FromContextOrDefault(r.Context(), slog.Default()).Debug("invalid path id",
			slog.String("value", chi.URLParam(r, "id")))
		HandleAPIError(w, r, err, "")
		return 0, false
	}
	return id, true
}

// handleUserID writes a 401 response and returns false when the request
// carries no authenticated user.
func handleUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return 0, false
	}
	return userID, true
}

// trimmedQuery returns the trimmed query parameter.
func trimmedQuery(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
