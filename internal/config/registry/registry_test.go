package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopecfg/internal/config/schema"
	"github.com/dshills/scopecfg/internal/config/tree"
)

func TestNewWithDefaults(t *testing.T) {
	r := NewWithDefaults()

	assert.Equal(t, []string{"compilers", "config", "mirrors", "modules", "packages", "repos"}, r.Names())
	for _, s := range r.All() {
		assert.NotEmpty(t, s.Description, s.Name)
	}
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	s := Section{Name: "toolchains", Schema: typed(schema.TypeNameArray)}

	require.NoError(t, r.Register(s))
	assert.True(t, r.Has("toolchains"))

	err := r.Register(s)
	assert.True(t, errors.Is(err, ErrSectionAlreadyRegistered))

	assert.Error(t, r.Register(Section{Schema: typed(schema.TypeNameArray)}))
	assert.Error(t, r.Register(Section{Name: "noschema"}))
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	r := New()
	r.MustRegister(Section{Name: "a", Schema: typed(schema.TypeNameObject)})
	assert.Panics(t, func() {
		r.MustRegister(Section{Name: "a", Schema: typed(schema.TypeNameObject)})
	})
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewWithDefaults()

	s, err := r.Lookup("mirrors")
	require.NoError(t, err)
	assert.Equal(t, "mirrors.yaml", s.Filename())
	assert.Equal(t, "mirrors:", s.OverrideKey())

	_, err = r.Lookup("bogus")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSection)
	assert.Contains(t, err.Error(), "compilers, config, mirrors")
	assert.Nil(t, r.Get("bogus"))
}

func TestSection_ValidatorInjectsDefaults(t *testing.T) {
	r := NewWithDefaults()
	s := r.Get("packages")
	require.NotNil(t, s)
	assert.Same(t, s.Validator(), s.Validator())

	doc := s.Wrap(tree.MustFromInterface(map[string]any{"mpich": nil}))
	require.NoError(t, s.Validator().Validate(doc))

	buildable, ok := doc.Lookup(tree.Path{tree.Key("packages"), tree.Key("mpich"), tree.Key("buildable")})
	require.True(t, ok)
	assert.Equal(t, true, buildable.Value())
}

func TestSection_DocumentAcceptsOverrideKey(t *testing.T) {
	s := NewWithDefaults().Get("config")
	doc := tree.MustFromInterface(map[string]any{"config:": map[string]any{"build_jobs": "eight"}})

	err := s.Validator().Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:.build_jobs")
	assert.NotNil(t, s.Document().PatternProperties["^config:?$"])
}

func TestSection_UnregisteredValidator(t *testing.T) {
	s := &Section{Name: "x", Schema: typed(schema.TypeNameInteger)}
	assert.Error(t, s.Validator().Validate(s.Wrap(tree.String("no"))))
}

func TestIsOverrideKey(t *testing.T) {
	assert.True(t, IsOverrideKey("config:"))
	assert.False(t, IsOverrideKey("config"))
}

func typed(name string) *schema.Schema {
	return &schema.Schema{Type: schema.SchemaType{Types: []string{name}}}
}
