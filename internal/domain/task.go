package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength bounds task and category names.
const MaxNameLength = 255

// EndDateBeforeStartMessage is reported on end_date when it precedes start_date.
const EndDateBeforeStartMessage = "The end date must be a date after or equal to start date."

// Task is a schedulable unit of work with a date range and a category.
type Task struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	StartDate   Date         `json:"start_date"`
	EndDate     Date         `json:"end_date"`
	CategoryID  int64        `json:"category_id"`
	Image       *string      `json:"image"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Category    *CategoryRef `json:"category,omitempty"`
}

// TaskAttributes are the user-editable fields of a Task.
type TaskAttributes struct {
	Name        string
	Description *string
	StartDate   Date
	EndDate     Date
	CategoryID  int64
}

// NewTask builds a Task from attrs and validates it.
func NewTask(attrs TaskAttributes, now time.Time) (*Task, error) {
	t := &Task{
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	t.apply(attrs)

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Update replaces the editable fields in place. On validation failure the task is left unchanged.
func (t *Task) Update(attrs TaskAttributes, now time.Time) error {
	next := *t
	next.apply(attrs)
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = now.UTC()
	*t = next
	return nil
}

func (t *Task) apply(attrs TaskAttributes) {
	t.Name = strings.TrimSpace(attrs.Name)
	t.Description = attrs.Description
	t.StartDate = attrs.StartDate
	t.EndDate = attrs.EndDate
	t.CategoryID = attrs.CategoryID
}

// HasImage reports whether an image path is recorded.
func (t *Task) HasImage() bool {
	return t.Image != nil && *t.Image != ""
}

// Validate checks the Task invariants and reports every failing field.
func (t *Task) Validate() error {
	v := &ValidationError{}

	switch {
	case t.Name == "":
		v.Add("name", "The name field is required.")
	case utf8.RuneCountInString(t.Name) > MaxNameLength:
		v.Add("name", "The name may not be greater than 255 characters.")
	}

	if t.StartDate.IsZero() {
		v.Add("start_date", "The start date field is required.")
	}
	if t.EndDate.IsZero() {
		v.Add("end_date", "The end date field is required.")
	}
	if !t.StartDate.IsZero() && !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		v.Add("end_date", EndDateBeforeStartMessage)
	}

	if t.CategoryID <= 0 {
		v.Add("category_id", "The category id field is required.")
	}

	return v.Err()
}
