package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskboard/internal/api/shared"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/phrazzld/taskboard/internal/service"
)

// AuthHandler handles account and session requests.
type AuthHandler struct {
	users service.UserService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(users service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := parseRequestForm(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Name:                 form.String("name"),
		Email:                form.String("email"),
		Password:             form.String("password"),
		PasswordConfirmation: form.String("password_confirmation"),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		User:    user,
	})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := parseRequestForm(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	res, err := h.users.Login(r.Context(), service.LoginInput{
		Email:    form.String("email"),
		Password: form.String("password"),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// Logout handles POST /api/logout. Every token of the caller is revoked.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r)
	if !ok {
		return
	}

	if err := h.users.Logout(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}

	logger.FromContextOrDefault(r.Context(), slog.Default()).Debug("logout complete")
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me handles GET /api/user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, user)
}
