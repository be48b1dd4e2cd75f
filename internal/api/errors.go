package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/taskboard/internal/api/shared"
	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/phrazzld/taskboard/internal/service"
	"github.com/phrazzld/taskboard/internal/service/auth"
	"github.com/phrazzld/taskboard/internal/storage"
	"github.com/phrazzld/taskboard/internal/store"
)

var (
	// ErrInvalidRequest indicates a body that could not be parsed.
	ErrInvalidRequest = errors.New("invalid request body")

	// ErrRequestTooLarge indicates a body above the accepted size.
	ErrRequestTooLarge = errors.New("request body too large")
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never leak to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError

	// Validation errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusUnprocessableEntity

	// Malformed requests
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge

	// Authentication errors
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrRevokedToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that exposes no internal detail.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "The given data was invalid."

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request format"
	case errors.Is(err, ErrRequestTooLarge):
		return "Request body too large"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken):
		return "Unauthenticated."
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrRevokedToken):
		return "Invalid token"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrCategoryNotFound):
		return "Category not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrCategoryNameExists):
		return "Category name already exists"
	case errors.Is(err, store.ErrCategoryInUse):
		return "Category still has tasks"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	case errors.Is(err, store.ErrConflict):
		return "Resource is in use"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for err. Validation errors become a 422
// listing every field; everything else is mapped through MapErrorToStatusCode
// and GetSafeErrorMessage. A non-empty fallback replaces the message of 5xx responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) && !verr.Empty() {
		shared.RespondWithValidationError(w, r, verr)
		return
	}
	if errors.Is(err, store.ErrUnknownCategory) {
		shared.RespondWithValidationError(w, r,
			domain.NewValidationError("category_id", "The selected category id is invalid."))
		return
	}

	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status >= http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}

	var opts []shared.ResponseOption
	if errors.Is(err, service.ErrInvalidCredentials) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
