package config

import (
	"errors"
	"fmt"

	"github.com/dshills/scopecfg/internal/config/loader"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/scope"
)

// Errors returned by configuration operations.
var (
	// ErrUnknownSection indicates a section name outside the registered set.
	ErrUnknownSection = registry.ErrUnknownSection

	// ErrUnknownScope indicates a scope name that is not registered.
	ErrUnknownScope = scope.ErrUnknownScope

	// ErrNoScopes indicates an operation needed a scope and none exist.
	ErrNoScopes = scope.ErrNoScopes

	// ErrInvalidUpdate indicates update data that is neither a mapping nor a
	// sequence.
	ErrInvalidUpdate = errors.New("update data must be a mapping or a list")

	// ErrRender wraps every failure while rendering a section.
	ErrRender = errors.New("error reading configuration")

	// ErrSettingNotFound indicates the setting path doesn't exist.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrTypeMismatch indicates the value type doesn't match the expected type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrLockTimeout indicates the update lock could not be acquired in time.
	ErrLockTimeout = errors.New("timed out acquiring config lock")
)

type (
	// FileError reports a section file that exists but cannot be read or
	// written.
	FileError = scope.FileError

	// ParseError reports malformed YAML with its file and line.
	ParseError = loader.ParseError

	// SchemaValidationError reports a section document that violates its
	// schema. Its Errors carry field paths and file positions.
	SchemaValidationError = scope.InvalidSectionError

	// MalformedScopeWarning reports a section file without the section's
	// root key. The scope is skipped.
	MalformedScopeWarning = scope.MalformedScopeWarning
)

// TypeError is returned when a type conversion fails.
type TypeError struct {
	// Path is the setting path.
	Path string
	// Expected is the expected type name.
	Expected string
	// Actual is the actual type name.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}
