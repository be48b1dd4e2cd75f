package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phrazzld/taskboard/internal/api/shared"
	"github.com/phrazzld/taskboard/internal/export"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/service"
)

// TaskHandler handles task requests.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListTasks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// Create handles POST /api/tasks. The body may be JSON or multipart with an
// optional "image" file part.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, done, ok := h.decodeTaskInput(w, r)
	if !ok {
		return
	}
	defer done()

	task, err := h.tasks.CreateTask(r.Context(), in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// Update handles PUT and PATCH /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathID(w, r)
	if !ok {
		return
	}
	in, done, ok := h.decodeTaskInput(w, r)
	if !ok {
		return
	}
	defer done()

	task, err := h.tasks.UpdateTask(r.Context(), id, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathID(w, r)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	shared.RespondNoContent(w)
}

// Filter handles GET /api/tasks/filter?category_id=&name=.
func (h *TaskHandler) Filter(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.FilterTasks(r.Context(), service.FilterInput{
		CategoryID: trimmedQuery(r, "category_id"),
		Name:       trimmedQuery(r, "name"),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to filter tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// Search handles GET /api/tasks/search?query=.
func (h *TaskHandler) Search(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.SearchTasks(r.Context(), trimmedQuery(r, "query"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// Export handles GET /api/tasks/export. The workbook is built in memory so a
// failure can still be reported as a JSON error.
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.tasks.ExportTasks(r.Context(), &buf); err != nil {
		HandleAPIError(w, r, err, "Failed to export tasks")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.FileName)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.FromContextOrDefault(r.Context(), slog.Default()).Warn("failed to write export",
			slog.String("error", err.Error()))
	}
}

// decodeTaskInput parses the request body into a TaskInput. On failure it
// writes the error response and returns ok=false. The done function releases
// the uploaded file.
func (h *TaskHandler) decodeTaskInput(w http.ResponseWriter, r *http.Request) (service.TaskInput, func(), bool) {
	form, err := parseRequestForm(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return service.TaskInput{}, nil, false
	}

	upload, done, err := form.Upload("image")
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read upload")
		return service.TaskInput{}, nil, false
	}

	return service.TaskInput{
		Name:        form.String("name"),
		Description: form.Optional("description"),
		StartDate:   form.String("start_date"),
		EndDate:     form.String("end_date"),
		CategoryID:  form.String("category_id"),
		Image:       upload,
	}, done, true
}
