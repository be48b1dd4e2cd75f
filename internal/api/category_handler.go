package api

import (
	"net/http"

	"github.com/phrazzld/taskboard/internal/api/shared"
	"github.com/phrazzld/taskboard/internal/service"
)

// CategoryHandler handles category requests.
type CategoryHandler struct {
	categories service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categories service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list categories")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, categories)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCategoryInput(w, r)
	if !ok {
		return
	}
	category, err := h.categories.CreateCategory(r.Context(), in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create category")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, category)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathID(w, r)
	if !ok {
		return
	}
	category, err := h.categories.GetCategory(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve category")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeCategoryInput(w, r)
	if !ok {
		return
	}
	category, err := h.categories.UpdateCategory(r.Context(), id, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update category")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathID(w, r)
	if !ok {
		return
	}
	if err := h.categories.DeleteCategory(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete category")
		return
	}
	shared.RespondNoContent(w)
}

func decodeCategoryInput(w http.ResponseWriter, r *http.Request) (service.CategoryInput, bool) {
	form, err := parseRequestForm(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return service.CategoryInput{}, false
	}
	return service.CategoryInput{
		Name:        form.String("name"),
		Description: form.Optional("description"),
	}, true
}
