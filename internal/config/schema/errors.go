package schema

import (
	"fmt"
	"strings"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	// Path addresses the invalid value from the document root.
	Path tree.Path

	// Message describes what's wrong.
	Message string

	// Value is the invalid value (may be nil).
	Value any

	// Expected describes what was expected.
	Expected string

	// Position is the source location, filled in by Locate.
	Position tree.Position
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Position.IsValid() {
		b.WriteString(e.Position.String())
		b.WriteString(": ")
	}
	if !e.Path.IsRoot() {
		b.WriteString(e.Path.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e.Errors), strings.Join(msgs, "\n  - "))
}

// Add adds a validation error.
func (e *ValidationErrors) Add(path tree.Path, message string) {
	e.Errors = append(e.Errors, &ValidationError{
		Path:    path,
		Message: message,
	})
}

// AddError adds an existing ValidationError.
func (e *ValidationErrors) AddError(err *ValidationError) {
	e.Errors = append(e.Errors, err)
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Len returns the number of errors.
func (e *ValidationErrors) Len() int {
	return len(e.Errors)
}

// AsError returns nil if no errors, otherwise returns self.
func (e *ValidationErrors) AsError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// ErrorsForPath returns all errors for a specific path, given in its
// dotted string form.
func (e *ValidationErrors) ErrorsForPath(path string) []*ValidationError {
	var result []*ValidationError
	for _, err := range e.Errors {
		if err.Path.String() == path {
			result = append(result, err)
		}
	}
	return result
}

// Locate fills in the position of every error from locs. An error whose
// value has no recorded position takes the position of its nearest located
// ancestor.
func (e *ValidationErrors) Locate(locs *tree.Locations) {
	if locs == nil {
		return
	}
	for _, err := range e.Errors {
		err.Position = locs.Nearest(err.Path)
	}
}

// First returns the first error, or nil.
func (e *ValidationErrors) First() *ValidationError {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}

// NewTypeError creates a validation error for type mismatch.
func NewTypeError(path tree.Path, expected string, actual *tree.Node) *ValidationError {
	return &ValidationError{
		Path:     path,
		Message:  fmt.Sprintf("expected %s, got %s", expected, actual.TypeName()),
		Value:    actual.Interface(),
		Expected: expected,
	}
}

// NewEnumError creates a validation error for invalid enum value.
func NewEnumError(path tree.Path, value *tree.Node, allowed []any) *ValidationError {
	return &ValidationError{
		Path:     path,
		Message:  fmt.Sprintf("value %v is not one of allowed values: %v", value.Interface(), allowed),
		Value:    value.Interface(),
		Expected: fmt.Sprintf("one of %v", allowed),
	}
}

// NewRangeError creates a validation error for out-of-range value.
func NewRangeError(path tree.Path, value any, min, max *float64) *ValidationError {
	var expected string
	switch {
	case min != nil && max != nil:
		expected = fmt.Sprintf("between %v and %v", *min, *max)
	case min != nil:
		expected = fmt.Sprintf(">= %v", *min)
	case max != nil:
		expected = fmt.Sprintf("<= %v", *max)
	default:
		expected = "valid range"
	}
	return &ValidationError{
		Path:     path,
		Message:  fmt.Sprintf("value %v is out of range (%s)", value, expected),
		Value:    value,
		Expected: expected,
	}
}

// NewPatternError creates a validation error for pattern mismatch.
func NewPatternError(path tree.Path, value, pattern string) *ValidationError {
	return &ValidationError{
		Path:     path,
		Message:  fmt.Sprintf("value %q does not match pattern: %s", value, pattern),
		Value:    value,
		Expected: fmt.Sprintf("pattern: %s", pattern),
	}
}

// NewRequiredError creates a validation error for missing required field.
func NewRequiredError(path tree.Path) *ValidationError {
	return &ValidationError{
		Path:    path,
		Message: "required field is missing",
	}
}

// NewUnknownPropertyError creates a validation error for unknown property.
func NewUnknownPropertyError(path tree.Path) *ValidationError {
	return &ValidationError{
		Path:    path,
		Message: "unknown property",
	}
}
