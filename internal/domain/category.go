package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Category is a label grouping tasks.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryRef is the slice of a Category embedded in task responses.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewCategory builds a Category and validates it.
func NewCategory(name string, description *string, now time.Time) (*Category, error) {
	c := &Category{
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces name and description. On validation failure c is left unchanged.
func (c *Category) Update(name string, description *string, now time.Time) error {
	next := *c
	next.Name = strings.TrimSpace(name)
	next.Description = description
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = now.UTC()
	*c = next
	return nil
}

// Validate checks the Category invariants.
func (c *Category) Validate() error {
	v := &ValidationError{}
	switch {
	case c.Name == "":
		v.Add("name", "The name field is required.")
	case utf8.RuneCountInString(c.Name) > MaxNameLength:
		v.Add("name", "The name may not be greater than 255 characters.")
	}
	return v.Err()
}
