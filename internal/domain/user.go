package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var emailValidator = validator.New()

// User represents a registered account.
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a User. The password must already be hashed.
// Emails are stored lower-cased so uniqueness is case-insensitive.
func NewUser(name, email, hashedPassword string, now time.Time) (*User, error) {
	u := &User{
		Name:           strings.TrimSpace(name),
		Email:          NormalizeEmail(email),
		HashedPassword: hashedPassword,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the User invariants.
func (u *User) Validate() error {
	v := &ValidationError{}

	switch {
	case u.Name == "":
		v.Add("name", "The name field is required.")
	case utf8.RuneCountInString(u.Name) > MaxNameLength:
		v.Add("name", "The name may not be greater than 255 characters.")
	}

	switch {
	case u.Email == "":
		v.Add("email", "The email field is required.")
	case len(u.Email) > MaxNameLength:
		v.Add("email", "The email may not be greater than 255 characters.")
	case emailValidator.Var(u.Email, "email") != nil:
		v.Add("email", "The email must be a valid email address.")
	}

	if u.HashedPassword == "" {
		v.Add("password", "The password field is required.")
	}

	return v.Err()
}
