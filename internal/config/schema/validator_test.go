package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopecfg/internal/config/tree"
)

func mustParse(t *testing.T, src string) *Schema {
	t.Helper()
	s, err := Parse([]byte(src))
	require.NoError(t, err)
	return s
}

// property wraps a value schema as property "v" of an object schema.
func property(t *testing.T, src string) *Schema {
	t.Helper()
	return mustParse(t, `{"type":"object","properties":{"v":`+src+`}}`)
}

func TestValidator_Validate_TypeChecks(t *testing.T) {
	tests := []struct {
		name      string
		schema    string
		value     any
		wantError bool
	}{
		{name: "valid string", schema: `{"type":"string"}`, value: "test"},
		{name: "invalid string (got int)", schema: `{"type":"string"}`, value: 123, wantError: true},
		{name: "valid integer", schema: `{"type":"integer"}`, value: 42},
		{name: "invalid integer (got float)", schema: `{"type":"integer"}`, value: 3.14, wantError: true},
		{name: "integer accepts integral float", schema: `{"type":"integer"}`, value: 4.0},
		{name: "string is not coerced to integer", schema: `{"type":"integer"}`, value: "4", wantError: true},
		{name: "valid boolean", schema: `{"type":"boolean"}`, value: true},
		{name: "valid array", schema: `{"type":"array"}`, value: []any{"a", "b"}},
		{name: "null rejected without null type", schema: `{"type":"string"}`, value: nil, wantError: true},
		{name: "multiple types", schema: `{"type":["string","null"]}`, value: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(property(t, tt.schema))
			err := v.Validate(tree.MustFromInterface(map[string]any{"v": tt.value}))
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_Validate_Enum(t *testing.T) {
	v := NewValidator(mustParse(t, `{
		"type": "object",
		"properties": {"level": {"type": "string", "enum": ["debug", "info", "warn", "error"]}}
	}`))

	assert.NoError(t, v.Validate(tree.MustFromInterface(map[string]any{"level": "info"})))

	err := v.Validate(tree.MustFromInterface(map[string]any{"level": "verbose"}))
	require.Error(t, err)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "level", verrs.First().Path.String())
}

func TestValidator_Validate_Constraints(t *testing.T) {
	tests := []struct {
		name      string
		schema    string
		value     any
		wantError bool
	}{
		{"minimum ok", `{"type":"integer","minimum":1,"maximum":64}`, 8, false},
		{"minimum violated", `{"type":"integer","minimum":1,"maximum":64}`, 0, true},
		{"maximum violated", `{"type":"integer","minimum":1,"maximum":64}`, 65, true},
		{"min length", `{"type":"string","minLength":2}`, "a", true},
		{"max length", `{"type":"string","maxLength":2}`, "abc", true},
		{"pattern ok", `{"type":"string","pattern":"^\\d+$"}`, "123", false},
		{"pattern violated", `{"type":"string","pattern":"^\\d+$"}`, "12a", true},
		{"min items", `{"type":"array","minItems":1}`, []any{}, true},
		{"max items", `{"type":"array","maxItems":1}`, []any{1, 2}, true},
		{"unique items", `{"type":"array","uniqueItems":true}`, []any{"a", "b", "a"}, true},
		{"unique items ok", `{"type":"array","uniqueItems":true}`, []any{"a", "b"}, false},
		{"items schema", `{"type":"array","items":{"type":"string"}}`, []any{"a", 1}, true},
		{"duration format", `{"type":"string","format":"duration"}`, "5m", false},
		{"bad duration", `{"type":"string","format":"duration"}`, "five", true},
		{"uri format", `{"type":"string","format":"uri"}`, "https://example.org/mirror", false},
		{"bad uri", `{"type":"string","format":"uri"}`, "example.org", true},
		{"const", `{"const":"x"}`, "y", true},
		{"not", `{"not":{"type":"string"}}`, "s", true},
		{"exclusive minimum", `{"type":"number","exclusiveMinimum":0}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(property(t, tt.schema))
			err := v.Validate(tree.MustFromInterface(map[string]any{"v": tt.value}))
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_Validate_AdditionalProperties(t *testing.T) {
	closed := mustParse(t, `{
		"type": "object",
		"properties": {"known": {"type": "string"}},
		"additionalProperties": false
	}`)

	v := NewValidator(closed)
	err := v.Validate(tree.MustFromInterface(map[string]any{"known": "a", "extra": 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra: unknown property")

	typed := mustParse(t, `{"type":"object","additionalProperties":{"type":"integer"}}`)
	v = NewValidator(typed)
	assert.NoError(t, v.Validate(tree.MustFromInterface(map[string]any{"a": 1, "b": 2})))
	assert.Error(t, v.Validate(tree.MustFromInterface(map[string]any{"a": "x"})))
}

func TestValidator_Validate_PatternProperties(t *testing.T) {
	v := NewValidator(mustParse(t, `{
		"type": "object",
		"patternProperties": {"^x-": {"type": "integer"}},
		"additionalProperties": false
	}`))

	assert.NoError(t, v.Validate(tree.MustFromInterface(map[string]any{"x-a": 1})))
	assert.Error(t, v.Validate(tree.MustFromInterface(map[string]any{"x-a": "no"})))
	assert.Error(t, v.Validate(tree.MustFromInterface(map[string]any{"y": 1})))
}

func TestValidator_Validate_Required(t *testing.T) {
	v := NewValidator(mustParse(t, `{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`))

	err := v.Validate(tree.Mapping())
	require.Error(t, err)
	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.ErrorsForPath("name"), 1)
}

func TestValidator_Validate_RequiredSatisfiedByDefault(t *testing.T) {
	s := mustParse(t, `{
		"type": "object",
		"properties": {"name": {"type": "string", "default": "anon"}},
		"required": ["name"]
	}`)

	node := tree.Mapping()
	require.NoError(t, NewValidator(s).Validate(node))
	got, ok := node.Get("name")
	require.True(t, ok)
	assert.Equal(t, "anon", got.Value())
}

func TestValidator_Defaults_Properties(t *testing.T) {
	s := mustParse(t, `{
		"type": "object",
		"properties": {
			"jobs": {"type": "integer", "default": 4},
			"tags": {"type": "array", "items": {"type": "string"}, "default": ["a"]},
			"name": {"type": "string"}
		}
	}`)

	node := tree.MustFromInterface(map[string]any{"name": "x"})
	require.NoError(t, NewValidator(s).Validate(node))

	want := tree.MustFromInterface(map[string]any{"name": "x", "jobs": 4, "tags": []any{"a"}})
	assert.True(t, tree.Equal(want, node), "got %v", node.Interface())
	assert.Equal(t, []string{"name", "jobs", "tags"}, node.Keys())
}

func TestValidator_Defaults_PresentValueKept(t *testing.T) {
	s := property(t, `{"type":"integer","default":4}`)

	node := tree.MustFromInterface(map[string]any{"v": 16})
	require.NoError(t, NewValidator(s).Validate(node))
	jobs, _ := node.Get("v")
	assert.Equal(t, 16, jobs.Value())
}

func TestValidator_Defaults_ExplicitNullPropertyNotReplaced(t *testing.T) {
	s := property(t, `{"type":["integer","null"],"default":4}`)

	node := tree.MustFromInterface(map[string]any{"v": nil})
	require.NoError(t, NewValidator(s).Validate(node))
	jobs, _ := node.Get("v")
	assert.True(t, jobs.IsNull())
}

const packageEntries = `{
	"type": "object",
	"patternProperties": {
		"\\w[\\w-]*": {
			"type": "object",
			"default": {},
			"properties": {"buildable": {"type": "boolean", "default": true}}
		}
	}
}`

func TestValidator_Defaults_PatternPropertiesReplaceNull(t *testing.T) {
	node := tree.MustFromInterface(map[string]any{"mpich": nil})
	require.NoError(t, NewValidator(mustParse(t, packageEntries)).Validate(node))

	want := tree.MustFromInterface(map[string]any{"mpich": map[string]any{"buildable": true}})
	assert.True(t, tree.Equal(want, node), "got %v", node.Interface())
}

func TestValidator_Defaults_PatternMatchesFromKeyStart(t *testing.T) {
	// "-foo" only matches the pattern past its first character, so the null
	// value is left alone and then rejected as a non-object.
	node := tree.MustFromInterface(map[string]any{"-foo": nil})
	err := NewValidator(mustParse(t, packageEntries)).Validate(node)
	require.Error(t, err)

	v, _ := node.Get("-foo")
	assert.True(t, v.IsNull())
}

func TestValidator_Defaults_Disabled(t *testing.T) {
	s := property(t, `{"type":"integer","default":4}`)

	node := tree.Mapping()
	require.NoError(t, NewValidator(s).WithDefaults(false).Validate(node))
	assert.Equal(t, 0, node.Len())
}

func TestValidator_Defaults_DefaultIsCopied(t *testing.T) {
	s := property(t, `{"type":"array","items":{"type":"string"},"default":["a"]}`)
	v := NewValidator(s)

	first := tree.Mapping()
	second := tree.Mapping()
	require.NoError(t, v.Validate(first))
	require.NoError(t, v.Validate(second))

	tags, _ := first.Get("v")
	tags.Append(tree.String("b"))

	other, _ := second.Get("v")
	assert.Equal(t, 1, other.Len())
}

func TestValidator_AnyOf(t *testing.T) {
	v := NewValidator(mustParse(t, `{
		"type": "object",
		"properties": {
			"mirrors": {
				"anyOf": [
					{"type": "object", "additionalProperties": {"type": "string"}},
					{"type": "array", "items": {"type": "string"}}
				]
			}
		}
	}`))

	assert.NoError(t, v.Validate(tree.MustFromInterface(map[string]any{"mirrors": map[string]any{"a": "file:///a"}})))
	assert.NoError(t, v.Validate(tree.MustFromInterface(map[string]any{"mirrors": []any{"A", "B"}})))

	err := v.Validate(tree.MustFromInterface(map[string]any{"mirrors": 3}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match any of the allowed schemas")
}

func TestValidator_AnyOf_InjectsFromMatchingBranch(t *testing.T) {
	s := mustParse(t, `{
		"anyOf": [
			{"type": "array"},
			{"type": "object", "properties": {"n": {"type": "integer", "default": 1}}}
		]
	}`)

	node := tree.Mapping()
	require.NoError(t, NewValidator(s).Validate(node))
	n, ok := node.Get("n")
	require.True(t, ok)
	assert.Equal(t, 1, n.Value())
}

func TestValidator_OneOf(t *testing.T) {
	v := NewValidator(mustParse(t, `{
		"oneOf": [
			{"type": "string"},
			{"type": "array", "items": {"type": "string"}}
		]
	}`))

	assert.NoError(t, v.Validate(tree.String("/tmp")))
	assert.NoError(t, v.Validate(tree.Sequence(tree.String("/tmp"))))
	assert.Error(t, v.Validate(tree.Scalar(1)))

	ambiguous := NewValidator(mustParse(t, `{"oneOf":[{"type":"number"},{"type":"integer"}]}`))
	assert.Error(t, ambiguous.Validate(tree.Scalar(1)))
}

func TestValidator_Ref(t *testing.T) {
	v := NewValidator(mustParse(t, `{
		"type": "object",
		"$defs": {"jobs": {"type": "integer", "minimum": 1, "maximum": 8}},
		"properties": {"build_jobs": {"$ref": "#/$defs/jobs"}}
	}`))

	assert.NoError(t, v.Validate(tree.MustFromInterface(map[string]any{"build_jobs": 4})))
	assert.Error(t, v.Validate(tree.MustFromInterface(map[string]any{"build_jobs": 9})))

	dangling := NewValidator(mustParse(t, `{"$ref":"#/$defs/missing"}`))
	assert.Error(t, dangling.Validate(tree.Scalar(1)))
}

func TestValidator_MaxErrors(t *testing.T) {
	s := mustParse(t, `{"type":"object","additionalProperties":{"type":"integer"}}`)
	data := map[string]any{}
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		data[k] = "x"
	}

	err := NewValidator(s).WithMaxErrors(2).Validate(tree.MustFromInterface(data))
	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, 2, verrs.Len())
}

func TestValidator_Locate(t *testing.T) {
	s := mustParse(t, `{
		"type": "object",
		"properties": {
			"config": {
				"type": "object",
				"properties": {
					"build_jobs": {"type": "integer"},
					"dirty": {"type": "boolean"}
				}
			}
		}
	}`)

	node := tree.MustFromInterface(map[string]any{
		"config": map[string]any{"build_jobs": "many", "dirty": "yes"},
	})
	locs := tree.NewLocations("config.yaml")
	locs.Record(tree.Path{tree.Key("config")}, 1, 1)
	locs.Record(tree.Path{tree.Key("config"), tree.Key("build_jobs")}, 2, 3)

	err := NewValidator(s).Validate(node)
	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)
	verrs.Locate(locs)

	jobs := verrs.ErrorsForPath("config.build_jobs")
	require.Len(t, jobs, 1)
	assert.Equal(t, tree.Position{File: "config.yaml", Line: 2, Column: 3}, jobs[0].Position)

	dirty := verrs.ErrorsForPath("config.dirty")
	require.Len(t, dirty, 1)
	assert.Equal(t, 1, dirty[0].Position.Line, "falls back to the enclosing key")
	assert.Contains(t, dirty[0].Error(), "config.yaml:1:1: config.dirty: expected boolean, got string")
}
