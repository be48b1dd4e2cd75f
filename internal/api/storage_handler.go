package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/storage"
)

// StorageHandler serves public bucket objects read-only.
type StorageHandler struct {
	bucket storage.Bucket
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(bucket storage.Bucket) *StorageHandler {
	return &StorageHandler{bucket: bucket}
}

// Serve handles GET /storage/*. Objects are streamed in full; seekable objects
// go through http.ServeContent so range requests work.
func (h *StorageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	exists, err := h.bucket.Exists(r.Context(), key)
	if errors.Is(err, storage.ErrInvalidPath) {
		exists, err = false, nil
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read file")
		return
	}
	if !exists {
		HandleAPIError(w, r, storage.ErrObjectNotFound, "Failed to read file")
		return
	}

	obj, err := h.bucket.Open(r.Context(), key)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read file")
		return
	}
	defer func() { _ = obj.Close() }()

	w.Header().Set("Cache-Control", "public, max-age=86400")

	if rs, ok := obj.(io.ReadSeeker); ok {
		mtype, err := mimetype.DetectReader(rs)
		if err == nil {
			_, err = rs.Seek(0, io.SeekStart)
		}
		if err != nil {
			HandleAPIError(w, r, err, "Failed to read file")
			return
		}
		w.Header().Set("Content-Type", mtype.String())
		http.ServeContent(w, r, path.Base(key), time.Time{}, rs)
		return
	}

	// Not seekable: sniff the head, then stream the head and the rest.
	head := make([]byte, 3072)
	n, err := io.ReadFull(obj, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		HandleAPIError(w, r, err, "Failed to read file")
		return
	}
	head = head[:n]
	w.Header().Set("Content-Type", mimetype.Detect(head).String())
	if n < cap(head) {
		w.Header().Set("Content-Length", strconv.Itoa(n))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(head); err != nil {
		return
	}
	if _, err := io.Copy(w, obj); err != nil {
		logger.FromContextOrDefault(r.Context(), nil).Warn("storage response interrupted",
			slog.String("path", key),
			slog.String("error", err.Error()))
	}
}
