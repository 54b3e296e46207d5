// Package loader provides file parsing for configuration.
//
// The loader package turns section files (YAML) into configuration trees with
// source positions, reads the TOML scope manifest, and collects bootstrap
// settings from environment variables.
package loader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
)

// DefaultFS returns the default file system (OS).
func DefaultFS() afero.Fs {
	return afero.NewOsFs()
}

// readFile reads path from fsys. A missing file yields nil, nil.
func readFile(fsys afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return data, nil
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
