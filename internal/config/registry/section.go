package registry

import (
	"strings"

	"github.com/dshills/scopecfg/internal/config/schema"
	"github.com/dshills/scopecfg/internal/config/tree"
)

// OverrideMarker is appended to a section's root key to make a scope replace,
// rather than merge with, lower-precedence scopes.
const OverrideMarker = ":"

// FileExt is the extension of section files.
const FileExt = ".yaml"

// Section defines a configuration section.
type Section struct {
	// Name is the section identifier and the base name of its files.
	Name string

	// Description is human-readable documentation.
	Description string

	// Schema validates the value stored under the section's root key.
	Schema *schema.Schema

	validator *schema.Validator
}

// Filename returns the name of the file holding the section in a scope.
func (s *Section) Filename() string {
	return s.Name + FileExt
}

// OverrideKey returns the root key that marks a full override.
func (s *Section) OverrideKey() string {
	return s.Name + OverrideMarker
}

// Document returns the schema of a whole section file.
func (s *Section) Document() *schema.Schema {
	return s.Validator().Schema()
}

// Validator returns the validator for section files. It injects defaults
// and is safe for concurrent use. Registered sections share one validator.
func (s *Section) Validator() *schema.Validator {
	if s.validator == nil {
		return schema.NewValidator(schema.Document(s.Name, s.Schema))
	}
	return s.validator
}

// Wrap returns the file document {name: value}.
func (s *Section) Wrap(value *tree.Node) *tree.Node {
	doc := tree.Mapping()
	doc.Set(s.Name, value)
	return doc
}

// IsOverrideKey reports whether key is the override form of a section key.
func IsOverrideKey(key string) bool {
	return strings.HasSuffix(key, OverrideMarker)
}
