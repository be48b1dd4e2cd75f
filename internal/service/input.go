package service

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/phrazzld/taskboard/internal/domain"
)

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

// mergeMissing merges a domain validation error into v. A field that failed
// to parse is not also reported as missing. Other errors are returned.
func mergeMissing(v *domain.ValidationError, err error) error {
	if err == nil {
		return nil
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	v.Merge(verr)
	return nil
}

// parseDateField parses an optional YYYY-MM-DD value. An empty value yields the
// zero Date so domain validation reports it as required.
func parseDateField(v *domain.ValidationError, field, label, raw string) domain.Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Date{}
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		v.Add(field, "The "+label+" does not match the format Y-m-d.")
		return domain.Date{}
	}
	return d
}

// parseIDField parses an optional positive integer id.
func parseIDField(v *domain.ValidationError, field, label, raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		v.Add(field, "The "+label+" must be an integer.")
		return 0, false
	}
	return id, true
}

// optionalText trims s and converts blank values to nil.
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
