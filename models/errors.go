package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// TitleMaxLength is the maximum number of characters in a task title.
const TitleMaxLength = 255

// ErrNotFound is returned when a task does not exist for the requesting
// owner. Tasks of other owners resolve to the same error.
var ErrNotFound = errors.New("task not found")

// ValidationError maps field names to the problems found with them.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add records msg against field.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

// HasErrors reports whether any field has been recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

func (v *ValidationError) Error() string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(v.Fields[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ValidateTitle checks that title is non-empty and at most TitleMaxLength
// characters long.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return NewValidationError("title", "This field may not be blank.")
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		return NewValidationError("title",
			fmt.Sprintf("Ensure this field has no more than %d characters.", TitleMaxLength))
	}
	return nil
}
