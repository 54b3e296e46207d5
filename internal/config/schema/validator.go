package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// DefaultMaxErrors is the number of failures collected before validation
// stops.
const DefaultMaxErrors = 100

// Validator validates configuration trees against a schema and fills in
// declared defaults.
//
// Defaults are applied while walking: at each mapping, a property that is
// absent and declares a default receives a copy of it, and a key matching a
// pattern property with a default has an explicit null replaced by a copy of
// that default. Children are validated after injection, and required-key
// checks run after children.
type Validator struct {
	schema *Schema

	injectDefaults bool
	maxErrors      int // 0 = unlimited

	patternCache sync.Map // map[string]*regexp.Regexp
}

// NewValidator creates a validator for the given schema.
func NewValidator(schema *Schema) *Validator {
	return &Validator{
		schema:         schema,
		injectDefaults: true,
		maxErrors:      DefaultMaxErrors,
	}
}

// WithDefaults sets whether defaults are injected into validated trees.
func (v *Validator) WithDefaults(inject bool) *Validator {
	v.injectDefaults = inject
	return v
}

// WithMaxErrors sets the maximum number of errors to collect.
func (v *Validator) WithMaxErrors(max int) *Validator {
	v.maxErrors = max
	return v
}

// Schema returns the root schema.
func (v *Validator) Schema() *Schema {
	return v.schema
}

// Validate checks node against the schema, injecting defaults in place.
// It returns *ValidationErrors on failure. Values are never coerced.
func (v *Validator) Validate(node *tree.Node) error {
	if v.schema == nil || node == nil {
		return nil
	}

	errs := &ValidationErrors{}
	v.validateValue(nil, node, v.schema, errs)
	return errs.AsError()
}

func (v *Validator) full(errs *ValidationErrors) bool {
	return v.maxErrors > 0 && errs.Len() >= v.maxErrors
}

// validateValue validates a value against a schema.
func (v *Validator) validateValue(path tree.Path, node *tree.Node, schema *Schema, errs *ValidationErrors) {
	if schema == nil || v.full(errs) {
		return
	}

	if schema.Ref != "" {
		refSchema := v.resolveRef(schema.Ref)
		if refSchema == nil {
			errs.Add(path, fmt.Sprintf("unresolved schema reference %q", schema.Ref))
			return
		}
		v.validateValue(path, node, refSchema, errs)
		return
	}

	for _, s := range schema.AllOf {
		v.validateValue(path, node, s, errs)
	}

	if len(schema.AnyOf) > 0 {
		if branch := v.firstMatch(path, node, schema.AnyOf); branch != nil {
			v.validateValue(path, node, branch, errs)
		} else {
			errs.AddError(&ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("%s value does not match any of the allowed schemas", node.TypeName()),
				Value:    node.Interface(),
				Expected: describeAlternatives(schema.AnyOf),
			})
		}
	}

	if len(schema.OneOf) > 0 {
		var match *Schema
		count := 0
		for _, s := range schema.OneOf {
			if v.matches(path, node, s) {
				count++
				match = s
			}
		}
		switch {
		case count == 0:
			errs.AddError(&ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("%s value does not match any of the allowed schemas", node.TypeName()),
				Value:    node.Interface(),
				Expected: describeAlternatives(schema.OneOf),
			})
		case count > 1:
			errs.Add(path, "value matches more than one schema (must match exactly one)")
		default:
			v.validateValue(path, node, match, errs)
		}
	}

	if schema.Not != nil && v.matches(path, node, schema.Not) {
		errs.Add(path, "value should not match the schema")
	}

	if schema.Const != nil {
		want, err := tree.FromInterface(schema.Const)
		if err != nil || !tree.Equal(node, want) {
			errs.Add(path, fmt.Sprintf("value must be %v", schema.Const))
		}
	}

	if len(schema.Enum) > 0 {
		v.validateEnum(path, node, schema.Enum, errs)
	}

	if !schema.Type.IsEmpty() && !v.matchesAnyType(node, schema.Type) {
		errs.AddError(NewTypeError(path, schema.Type.String(), node))
		return
	}

	switch node.Kind() {
	case tree.KindMapping:
		v.validateObject(path, node, schema, errs)
	case tree.KindSequence:
		v.validateArray(path, node, schema, errs)
	case tree.KindScalar:
		switch val := node.Value().(type) {
		case string:
			v.validateString(path, val, schema, errs)
		case int, float64:
			v.validateNumber(path, node, schema, errs)
		}
	}
}

// matches reports whether node satisfies schema without touching node.
func (v *Validator) matches(path tree.Path, node *tree.Node, schema *Schema) bool {
	probe := &ValidationErrors{}
	v.validateValue(path, node.Clone(), schema, probe)
	return !probe.HasErrors()
}

func (v *Validator) firstMatch(path tree.Path, node *tree.Node, schemas []*Schema) *Schema {
	for _, s := range schemas {
		if v.matches(path, node, s) {
			return s
		}
	}
	return nil
}

// matchesAnyType checks whether the node has one of the listed JSON types.
func (v *Validator) matchesAnyType(node *tree.Node, types SchemaType) bool {
	for _, typ := range types.Types {
		if v.matchesType(node, typ) {
			return true
		}
	}
	return false
}

// matchesType checks if a node matches a JSON Schema type.
func (v *Validator) matchesType(node *tree.Node, typ string) bool {
	switch typ {
	case TypeNameString:
		_, ok := node.Str()
		return ok
	case TypeNameNumber:
		switch node.Value().(type) {
		case int, float64:
			return true
		}
		return false
	case TypeNameInteger:
		_, ok := node.Int()
		return ok
	case TypeNameBoolean:
		_, ok := node.Bool()
		return ok
	case TypeNameArray:
		return node.IsSequence()
	case TypeNameObject:
		return node.IsMapping()
	case TypeNameNull:
		return node.IsNull()
	default:
		return false
	}
}

// validateString validates string-specific constraints.
func (v *Validator) validateString(path tree.Path, value string, schema *Schema, errs *ValidationErrors) {
	length := utf8.RuneCountInString(value)

	if schema.MinLength != nil && length < *schema.MinLength {
		errs.Add(path, fmt.Sprintf("string length %d is less than minimum %d", length, *schema.MinLength))
	}

	if schema.MaxLength != nil && length > *schema.MaxLength {
		errs.Add(path, fmt.Sprintf("string length %d is greater than maximum %d", length, *schema.MaxLength))
	}

	if schema.Pattern != "" {
		re, err := v.compile(schema.Pattern)
		if err != nil {
			errs.Add(path, fmt.Sprintf("invalid pattern %q in schema", schema.Pattern))
		} else if !re.MatchString(value) {
			errs.AddError(NewPatternError(path, value, schema.Pattern))
		}
	}

	if schema.Format != "" {
		v.validateFormat(path, value, schema.Format, errs)
	}
}

// validateNumber validates numeric constraints.
func (v *Validator) validateNumber(path tree.Path, node *tree.Node, schema *Schema, errs *ValidationErrors) {
	var f float64
	switch val := node.Value().(type) {
	case int:
		f = float64(val)
	case float64:
		f = val
	}

	if (schema.Minimum != nil && f < *schema.Minimum) || (schema.Maximum != nil && f > *schema.Maximum) {
		errs.AddError(NewRangeError(path, node.Value(), schema.Minimum, schema.Maximum))
	}

	if schema.ExclusiveMinimum != nil && f <= *schema.ExclusiveMinimum {
		errs.Add(path, fmt.Sprintf("value must be greater than %v", *schema.ExclusiveMinimum))
	}

	if schema.ExclusiveMaximum != nil && f >= *schema.ExclusiveMaximum {
		errs.Add(path, fmt.Sprintf("value must be less than %v", *schema.ExclusiveMaximum))
	}
}

// validateArray validates array constraints.
func (v *Validator) validateArray(path tree.Path, node *tree.Node, schema *Schema, errs *ValidationErrors) {
	items := node.Items()

	if schema.MinItems != nil && len(items) < *schema.MinItems {
		errs.Add(path, fmt.Sprintf("array has %d items, minimum is %d", len(items), *schema.MinItems))
	}

	if schema.MaxItems != nil && len(items) > *schema.MaxItems {
		errs.Add(path, fmt.Sprintf("array has %d items, maximum is %d", len(items), *schema.MaxItems))
	}

	if schema.UniqueItems {
	outer:
		for i := 1; i < len(items); i++ {
			for j := 0; j < i; j++ {
				if tree.Equal(items[i], items[j]) {
					errs.Add(path.Item(i), fmt.Sprintf("array items must be unique, duplicate of index %d", j))
					break outer
				}
			}
		}
	}

	if schema.Items != nil {
		for i, item := range items {
			v.validateValue(path.Item(i), item, schema.Items, errs)
		}
	}
}

// validateObject injects defaults, validates children, then checks required
// and unknown keys.
func (v *Validator) validateObject(path tree.Path, node *tree.Node, schema *Schema, errs *ValidationErrors) {
	patterns := sortedKeys(schema.PatternProperties)

	if v.injectDefaults {
		v.injectObjectDefaults(node, schema, patterns)
	}

	for _, name := range node.Keys() {
		if v.full(errs) {
			return
		}
		child, _ := node.Get(name)
		childPath := path.Child(name)
		matched := false

		if propSchema, ok := schema.Properties[name]; ok {
			matched = true
			v.validateValue(childPath, child, propSchema, errs)
		}

		for _, pattern := range patterns {
			re, err := v.compile(pattern)
			if err != nil {
				errs.Add(childPath, fmt.Sprintf("invalid pattern %q in schema", pattern))
				continue
			}
			if re.MatchString(name) {
				matched = true
				v.validateValue(childPath, child, schema.PatternProperties[pattern], errs)
			}
		}

		if matched || schema.AdditionalProperties == nil {
			continue
		}
		if schema.AdditionalProperties.Schema != nil {
			v.validateValue(childPath, child, schema.AdditionalProperties.Schema, errs)
		} else if !schema.AdditionalProperties.Allowed {
			errs.AddError(NewUnknownPropertyError(childPath))
		}
	}

	for _, req := range schema.Required {
		if !node.Has(req) {
			errs.AddError(NewRequiredError(path.Child(req)))
		}
	}
}

func (v *Validator) injectObjectDefaults(node *tree.Node, schema *Schema, patterns []string) {
	for _, name := range sortedKeys(schema.Properties) {
		prop := schema.Properties[name]
		if prop == nil || prop.Default == nil || node.Has(name) {
			continue
		}
		if def, err := tree.FromInterface(prop.Default); err == nil {
			node.Set(name, def)
		}
	}

	for _, pattern := range patterns {
		prop := schema.PatternProperties[pattern]
		if prop == nil || prop.Default == nil {
			continue
		}
		re, err := v.compile(pattern)
		if err != nil {
			continue
		}
		for _, key := range node.Keys() {
			child, _ := node.Get(key)
			if !matchesAtStart(re, key) || !child.IsNull() {
				continue
			}
			if def, err := tree.FromInterface(prop.Default); err == nil {
				node.Set(key, def)
			}
		}
	}
}

// validateEnum checks if value is in the allowed enum values.
func (v *Validator) validateEnum(path tree.Path, node *tree.Node, allowed []any, errs *ValidationErrors) {
	for _, a := range allowed {
		want, err := tree.FromInterface(a)
		if err == nil && tree.Equal(node, want) {
			return
		}
	}
	errs.AddError(NewEnumError(path, node, allowed))
}

// validateFormat validates string formats.
func (v *Validator) validateFormat(path tree.Path, value, format string, errs *ValidationErrors) {
	switch format {
	case FormatDuration:
		if _, err := time.ParseDuration(value); err != nil {
			errs.Add(path, fmt.Sprintf("invalid duration format: %s", value))
		}
	case FormatURI, "url":
		if !strings.Contains(value, "://") {
			errs.Add(path, fmt.Sprintf("invalid URI format: %s", value))
		}
	case FormatRegex:
		if _, err := regexp.Compile(value); err != nil {
			errs.Add(path, fmt.Sprintf("invalid regex: %s", value))
		}
	case FormatPath:
		if value == "" {
			errs.Add(path, "path cannot be empty")
		}
	}
}

// resolveRef resolves a $ref to its schema.
func (v *Validator) resolveRef(ref string) *Schema {
	if v.schema == nil || v.schema.Defs == nil {
		return nil
	}

	if strings.HasPrefix(ref, "#/$defs/") {
		name := strings.TrimPrefix(ref, "#/$defs/")
		return v.schema.Defs[name]
	}

	return nil
}

// compile returns the cached compiled form of pattern.
func (v *Validator) compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := v.patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	v.patternCache.Store(pattern, re)
	return re, nil
}

// matchesAtStart reports whether re matches a prefix of s. Defaults are only
// injected for keys a pattern matches from their first character.
func matchesAtStart(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

func sortedKeys(m map[string]*Schema) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describeAlternatives(schemas []*Schema) string {
	parts := make([]string, 0, len(schemas))
	for _, s := range schemas {
		switch {
		case s.Ref != "":
			parts = append(parts, strings.TrimPrefix(s.Ref, "#/$defs/"))
		case !s.Type.IsEmpty():
			parts = append(parts, s.Type.String())
		default:
			parts = append(parts, "schema")
		}
	}
	return strings.Join(parts, " or ")
}
