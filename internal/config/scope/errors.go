package scope

import (
	"errors"
	"fmt"

	"github.com/dshills/scopecfg/internal/config/schema"
)

var (
	// ErrDuplicateScope is returned when two scopes share a name.
	ErrDuplicateScope = errors.New("duplicate config scope")

	// ErrUnknownScope is returned for a scope name that is not registered.
	ErrUnknownScope = errors.New("unknown config scope")

	// ErrNoScopes is returned when an operation needs a scope and none exist.
	ErrNoScopes = errors.New("no config scopes registered")

	// ErrNotRegularFile is wrapped by FileError when a section path exists
	// but is a directory or special file.
	ErrNotRegularFile = errors.New("not a regular file")
)

// FileError reports a section file that exists but cannot be read, or that
// cannot be written.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("cannot %s config file %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// InvalidSectionError reports a section document that fails its schema.
type InvalidSectionError struct {
	Scope   string
	Section string
	File    string
	Errors  *schema.ValidationErrors
}

func (e *InvalidSectionError) Error() string {
	return fmt.Sprintf("invalid %s configuration in scope %s (%s): %v", e.Section, e.Scope, e.File, e.Errors)
}

func (e *InvalidSectionError) Unwrap() error {
	return e.Errors
}

// MalformedScopeWarning is raised when a scope's section file holds a mapping
// whose root key is neither the section name nor its override form. The
// scope is skipped and resolution continues.
type MalformedScopeWarning struct {
	Scope   string
	Path    string
	Section string
}

func (w MalformedScopeWarning) String() string {
	return fmt.Sprintf("skipping bad configuration file %s in scope %s: no %q key", w.Path, w.Scope, w.Section)
}
