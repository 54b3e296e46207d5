// Package schema provides JSON Schema-based validation for configuration
// sections.
//
// The schema package defines the structure and constraints for each section
// and validates section documents against them. Validation also fills in
// declared defaults, so a validated document is ready for merging.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed sections/*.json
var sectionFS embed.FS

// JSON Schema type names.
const (
	TypeNameString  = "string"
	TypeNameNumber  = "number"
	TypeNameInteger = "integer"
	TypeNameBoolean = "boolean"
	TypeNameArray   = "array"
	TypeNameObject  = "object"
	TypeNameNull    = "null"
)

// Formats checked by the validator.
const (
	FormatDuration = "duration"
	FormatURI      = "uri"
	FormatRegex    = "regex"
	FormatPath     = "path"
)

// Schema represents a JSON Schema definition for configuration validation.
type Schema struct {
	// ID is the schema identifier ($id).
	ID string `json:"$id,omitempty"`

	// Schema is the JSON Schema version ($schema).
	SchemaVersion string `json:"$schema,omitempty"`

	// Title is a descriptive title.
	Title string `json:"title,omitempty"`

	// Description provides documentation.
	Description string `json:"description,omitempty"`

	// Type is the JSON type (string, number, integer, boolean, array, object, null).
	Type SchemaType `json:"type,omitempty"`

	// Properties defines object properties (for type: object).
	Properties map[string]*Schema `json:"properties,omitempty"`

	// PatternProperties applies schemas to keys matching a regular expression.
	PatternProperties map[string]*Schema `json:"patternProperties,omitempty"`

	// AdditionalProperties controls keys not matched by Properties or
	// PatternProperties.
	AdditionalProperties *Additional `json:"additionalProperties,omitempty"`

	// Required lists required property names.
	Required []string `json:"required,omitempty"`

	// Items defines the schema for array elements.
	Items *Schema `json:"items,omitempty"`

	// Enum lists allowed values.
	Enum []any `json:"enum,omitempty"`

	// Const defines a single allowed value.
	Const any `json:"const,omitempty"`

	// Default is injected by the validator when the value is missing.
	Default any `json:"default,omitempty"`

	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`

	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Format is a semantic format hint (e.g., "uri", "duration", "path").
	Format string `json:"format,omitempty"`

	MinItems    *int `json:"minItems,omitempty"`
	MaxItems    *int `json:"maxItems,omitempty"`
	UniqueItems bool `json:"uniqueItems,omitempty"`

	AllOf []*Schema `json:"allOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`
	Not   *Schema   `json:"not,omitempty"`

	// Ref references another schema ($ref).
	Ref string `json:"$ref,omitempty"`

	// Defs contains schema definitions ($defs).
	Defs map[string]*Schema `json:"$defs,omitempty"`

	// Deprecated marks the setting as deprecated.
	Deprecated bool `json:"deprecated,omitempty"`
}

// SchemaType represents JSON Schema type(s).
// Can be a single type or an array of types.
type SchemaType struct {
	Types []string
}

// UnmarshalJSON handles both single type and array of types.
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		t.Types = []string{single}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("type must be string or array of strings: %w", err)
	}
	t.Types = arr
	return nil
}

// MarshalJSON outputs single type as string, multiple as array.
func (t SchemaType) MarshalJSON() ([]byte, error) {
	if len(t.Types) == 1 {
		return json.Marshal(t.Types[0])
	}
	return json.Marshal(t.Types)
}

// Is checks if the schema type includes the given type.
func (t SchemaType) Is(typ string) bool {
	for _, st := range t.Types {
		if st == typ {
			return true
		}
	}
	return false
}

// IsEmpty returns true if no types are defined.
func (t SchemaType) IsEmpty() bool {
	return len(t.Types) == 0
}

// String returns the type as a string.
func (t SchemaType) String() string {
	if len(t.Types) == 1 {
		return t.Types[0]
	}
	return strings.Join(t.Types, " or ")
}

// Additional is the value of additionalProperties: either a boolean or a
// schema applied to every unmatched key.
type Additional struct {
	Allowed bool
	Schema  *Schema
}

// UnmarshalJSON accepts a boolean or a schema object.
func (a *Additional) UnmarshalJSON(data []byte) error {
	var allowed bool
	if err := json.Unmarshal(data, &allowed); err == nil {
		a.Allowed = allowed
		a.Schema = nil
		return nil
	}
	s, err := decode(data)
	if err != nil {
		return fmt.Errorf("additionalProperties must be boolean or schema: %w", err)
	}
	a.Allowed = true
	a.Schema = s
	return nil
}

// MarshalJSON outputs the schema when one is set, otherwise the boolean.
func (a Additional) MarshalJSON() ([]byte, error) {
	if a.Schema != nil {
		return json.Marshal(a.Schema)
	}
	return json.Marshal(a.Allowed)
}

var (
	sectionCache     map[string]*Schema
	sectionCacheOnce sync.Once
	sectionCacheErr  error
)

// LoadEmbedded loads the value schemas of the built-in sections, keyed by
// section name.
func LoadEmbedded() (map[string]*Schema, error) {
	sectionCacheOnce.Do(func() {
		entries, err := fs.ReadDir(sectionFS, "sections")
		if err != nil {
			sectionCacheErr = fmt.Errorf("failed to read embedded schemas: %w", err)
			return
		}

		cache := make(map[string]*Schema, len(entries))
		for _, entry := range entries {
			name := strings.TrimSuffix(entry.Name(), ".json")
			data, err := sectionFS.ReadFile(path.Join("sections", entry.Name()))
			if err != nil {
				sectionCacheErr = fmt.Errorf("failed to read embedded schema %s: %w", name, err)
				return
			}
			s, err := Parse(data)
			if err != nil {
				sectionCacheErr = fmt.Errorf("embedded schema %s: %w", name, err)
				return
			}
			cache[name] = s
		}
		sectionCache = cache
	})

	return sectionCache, sectionCacheErr
}

// EmbeddedNames returns the sorted names of the built-in sections.
func EmbeddedNames() ([]string, error) {
	all, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Parse parses a JSON Schema from bytes. Numbers in defaults, enums and
// constants keep their integer form.
func Parse(data []byte) (*Schema, error) {
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s, nil
}

func decode(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	s := &Schema{}
	if err := dec.Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Document wraps the value schema of a section into the schema of a whole
// section file: a mapping whose root key is the section name, optionally
// followed by the override marker ":". Other root keys are not rejected here.
func Document(section string, value *Schema) *Schema {
	doc := &Schema{
		Title: section,
		Type:  SchemaType{Types: []string{TypeNameObject}},
		PatternProperties: map[string]*Schema{
			"^" + regexp.QuoteMeta(section) + ":?$": value,
		},
	}
	if value != nil && len(value.Defs) > 0 {
		doc.Defs = value.Defs
	}
	return doc
}

// GetProperty returns the schema for a nested property path.
// Path is dot-separated (e.g., "config.build_stage").
func (s *Schema) GetProperty(path string) *Schema {
	if s == nil || path == "" {
		return s
	}

	current := s
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		prop, ok := current.Properties[part]
		if !ok {
			return nil
		}
		current = prop
	}

	return current
}

// IsRequired checks if a property is required.
func (s *Schema) IsRequired(name string) bool {
	for _, req := range s.Required {
		if req == name {
			return true
		}
	}
	return false
}

// AllowsAdditionalProperties returns whether additional properties are allowed.
func (s *Schema) AllowsAdditionalProperties() bool {
	if s.AdditionalProperties == nil {
		return true
	}
	return s.AdditionalProperties.Allowed
}
