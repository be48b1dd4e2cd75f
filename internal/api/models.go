package api

import "github.com/phrazzld/taskboard/internal/domain"

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterResponse is returned by the registration endpoint.
type RegisterResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

// Note: task and category responses are the domain types themselves. Their
// JSON tags define the wire format, and password hashes are tagged json:"-".
