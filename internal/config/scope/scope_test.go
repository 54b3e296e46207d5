package scope

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopecfg/internal/config/loader"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/tree"
)

func newTestScope(t *testing.T, files map[string]string) (*Scope, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/user/"+name, []byte(content), 0o644))
	}
	return New("user", "/user", WithFs(fs)), fs
}

func TestScope_SectionFilePath(t *testing.T) {
	s, _ := newTestScope(t, nil)

	path, err := s.SectionFilePath("packages")
	require.NoError(t, err)
	assert.Equal(t, "/user/packages.yaml", path)

	_, err = s.SectionFilePath("bogus")
	assert.ErrorIs(t, err, registry.ErrUnknownSection)
}

func TestScope_GetSection(t *testing.T) {
	s, _ := newTestScope(t, map[string]string{
		"packages.yaml": "packages:\n  mpich:\n    version: [3.2]\n",
	})

	doc, err := s.GetSection("packages")
	require.NoError(t, err)

	buildable, ok := doc.Lookup(tree.Path{tree.Key("packages"), tree.Key("mpich"), tree.Key("buildable")})
	require.True(t, ok, "default not injected")
	b, _ := buildable.Bool()
	assert.True(t, b)
	assert.True(t, s.Cached("packages"))
}

func TestScope_GetSectionAbsent(t *testing.T) {
	s, _ := newTestScope(t, nil)

	doc, err := s.GetSection("config")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.True(t, s.Cached("config"), "absence should be cached")
}

func TestScope_GetSectionEmptyFile(t *testing.T) {
	s, _ := newTestScope(t, map[string]string{"config.yaml": ""})

	doc, err := s.GetSection("config")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, doc.IsNull())
}

func TestScope_GetSectionNullBody(t *testing.T) {
	tests := []struct {
		section string
		content string
		want    tree.Kind
	}{
		{"config", "config:\n  # build_jobs: 4\n", tree.KindMapping},
		{"packages", "packages:\n", tree.KindMapping},
		{"modules", "modules:\n", tree.KindMapping},
		{"mirrors", "mirrors:\n", tree.KindMapping},
		{"repos", "repos:\n", tree.KindSequence},
		{"compilers", "compilers:\n", tree.KindSequence},
		{"config", "config::\n", tree.KindMapping},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			s, _ := newTestScope(t, map[string]string{tt.section + ".yaml": tt.content})

			doc, err := s.GetSection(tt.section)
			require.NoError(t, err)

			key := doc.Keys()[0]
			value, _ := doc.Get(key)
			assert.Equal(t, tt.want, value.Kind())
			if tt.want == tree.KindSequence {
				assert.Equal(t, 0, value.Len())
			}
		})
	}
}

func TestScope_GetSectionUnknown(t *testing.T) {
	s, _ := newTestScope(t, nil)

	_, err := s.GetSection("bogus")
	assert.ErrorIs(t, err, registry.ErrUnknownSection)
}

func TestScope_GetSectionNotRegular(t *testing.T) {
	s, fs := newTestScope(t, nil)
	require.NoError(t, fs.MkdirAll("/user/config.yaml", 0o755))

	_, err := s.GetSection("config")

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "/user/config.yaml", fe.Path)
	assert.ErrorIs(t, err, ErrNotRegularFile)
	assert.False(t, s.Cached("config"))
}

func TestScope_GetSectionParseError(t *testing.T) {
	s, _ := newTestScope(t, map[string]string{"config.yaml": "config:\n  build_jobs: 4: 5\n"})

	_, err := s.GetSection("config")

	var pe *loader.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "/user/config.yaml", pe.Path)
	assert.Equal(t, 2, pe.Line)
}

func TestScope_GetSectionInvalid(t *testing.T) {
	s, _ := newTestScope(t, map[string]string{
		"config.yaml": "config:\n  dirty: false\n  build_jobs: fast\n",
	})

	_, err := s.GetSection("config")

	var ie *InvalidSectionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "user", ie.Scope)
	assert.Equal(t, "config", ie.Section)
	assert.Equal(t, "/user/config.yaml", ie.File)

	first := ie.Errors.First()
	require.NotNil(t, first)
	assert.Equal(t, "config.build_jobs", first.Path.String())
	assert.Equal(t, tree.Position{File: "/user/config.yaml", Line: 3, Column: 3}, first.Position)
	assert.Contains(t, err.Error(), "/user/config.yaml:3:3")
	assert.False(t, s.Cached("config"), "invalid documents are not cached")
}

func TestScope_Cache(t *testing.T) {
	s, fs := newTestScope(t, map[string]string{"repos.yaml": "repos: [/r1]\n"})

	first, err := s.GetSection("repos")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/user/repos.yaml", []byte("repos: [/r2]\n"), 0o644))

	cached, err := s.GetSection("repos")
	require.NoError(t, err)
	assert.True(t, tree.Equal(first, cached), "cached document should be served")

	s.Invalidate("repos")
	fresh, err := s.GetSection("repos")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"repos": []any{"/r2"}}, fresh.Interface())

	require.NoError(t, fs.Remove("/user/repos.yaml"))
	s.Clear()
	assert.False(t, s.Cached("repos"))

	gone, err := s.GetSection("repos")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestScope_GetSectionReturnsCopy(t *testing.T) {
	s, _ := newTestScope(t, map[string]string{"repos.yaml": "repos: [/r1]\n"})

	doc, err := s.GetSection("repos")
	require.NoError(t, err)
	doc.Set("repos", tree.Null())

	again, err := s.GetSection("repos")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"repos": []any{"/r1"}}, again.Interface())
}

func TestScope_WriteSection(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New("user", "/home/u/.scopecfg", WithFs(fs))

	value := tree.Mapping()
	value.Set("build_jobs", tree.Scalar(8))
	require.NoError(t, s.WriteSection("config", value))

	data, err := afero.ReadFile(fs, "/home/u/.scopecfg/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "config:\n  build_jobs: 8\n", string(data))

	// A fresh scope over the same directory reads what was written.
	other := New("user", "/home/u/.scopecfg", WithFs(fs))
	doc, err := other.GetSection("config")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"config": map[string]any{"build_jobs": 8}}, doc.Interface())

	cached, err := s.GetSection("config")
	require.NoError(t, err)
	assert.True(t, tree.Equal(doc, cached))

	entries, err := afero.ReadDir(fs, "/home/u/.scopecfg")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files should not be left behind")
}

func TestScope_WriteSectionInvalid(t *testing.T) {
	s, fs := newTestScope(t, nil)

	value := tree.Mapping()
	value.Set("build_jobs", tree.String("many"))
	err := s.WriteSection("config", value)

	var ie *InvalidSectionError
	require.ErrorAs(t, err, &ie)

	exists, err := afero.Exists(fs, "/user/config.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, s.Cached("config"))
}

func TestScope_WriteSectionDoesNotAliasValue(t *testing.T) {
	s, _ := newTestScope(t, nil)

	value := tree.Sequence(tree.String("/r1"))
	require.NoError(t, s.WriteSection("repos", value))
	value.Append(tree.String("/r2"))

	doc, err := s.GetSection("repos")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"repos": []any{"/r1"}}, doc.Interface())
}

func TestScope_WriteSectionFailureKeepsFile(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/user/repos.yaml", []byte("repos: [/r1]\n"), 0o644))
	s := New("user", "/user", WithFs(afero.NewReadOnlyFs(base)))

	err := s.WriteSection("repos", tree.Sequence(tree.String("/r2")))

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "/user/repos.yaml", fe.Path)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, s.Cached("repos"))

	data, err := afero.ReadFile(base, "/user/repos.yaml")
	require.NoError(t, err)
	assert.Equal(t, "repos: [/r1]\n", string(data))

	doc, err := s.GetSection("repos")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"repos": []any{"/r1"}}, doc.Interface())
}

func TestRegistry(t *testing.T) {
	fs := afero.NewMemMapFs()
	defaults := New("defaults", "/d", WithFs(fs))
	user := New("user", "/u", WithFs(fs))

	r, err := NewRegistry(defaults, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"defaults", "user"}, r.Names())
	assert.Equal(t, 2, r.Len())

	highest, err := r.Highest()
	require.NoError(t, err)
	assert.Same(t, user, highest)

	s, err := r.Lookup("")
	require.NoError(t, err)
	assert.Same(t, user, s)

	s, err = r.Lookup("defaults")
	require.NoError(t, err)
	assert.Same(t, defaults, s)

	_, err = r.Lookup("site")
	assert.ErrorIs(t, err, ErrUnknownScope)
	assert.Contains(t, err.Error(), "defaults, user")

	err = r.Add(New("user", "/other"))
	assert.ErrorIs(t, err, ErrDuplicateScope)
}

func TestRegistry_Empty(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.Highest()
	assert.True(t, errors.Is(err, ErrNoScopes))

	_, err = r.Lookup("")
	assert.ErrorIs(t, err, ErrNoScopes)

	got, err := r.Resolve("config", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got.Interface())
}

func TestRegistry_Resolve(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/mirrors.yaml", []byte("mirrors: [A, B]\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/s/mirrors.yaml", []byte("mirors: [X]\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/u/mirrors.yaml", []byte("mirrors: [B, C]\n"), 0o644))

	r, err := FromEntries([]loader.ScopeEntry{
		{Name: "defaults", Path: "/d"},
		{Name: "site", Path: "/s"},
		{Name: "user", Path: "/u"},
	}, WithFs(fs))
	require.NoError(t, err)

	var warnings []MalformedScopeWarning
	got, err := r.Resolve("mirrors", func(w MalformedScopeWarning) {
		warnings = append(warnings, w)
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"B", "C", "A"}, got.Interface())
	require.Len(t, warnings, 1)
	assert.Equal(t, "site", warnings[0].Scope)
	assert.Equal(t, "/s/mirrors.yaml", warnings[0].Path)

	r.ClearCaches()
	for _, s := range r.Scopes() {
		assert.False(t, s.Cached("mirrors"), s.Name())
	}
}

func TestRegistry_ResolvePropagatesErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/config.yaml", []byte("config:\n  build_jobs: 0\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/u/config.yaml", []byte("config:\n  dirty: true\n"), 0o644))

	r, err := FromEntries([]loader.ScopeEntry{{Name: "defaults", Path: "/d"}, {Name: "user", Path: "/u"}}, WithFs(fs))
	require.NoError(t, err)

	_, err = r.Resolve("config", nil)

	var ie *InvalidSectionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "defaults", ie.Scope)
}

func TestPaths_Entries(t *testing.T) {
	p := Paths{Prefix: "/opt/tool", UserDir: "/home/u/.scopecfg", Platform: "linux"}

	want := []loader.ScopeEntry{
		{Name: "defaults", Path: "/opt/tool/etc/scopecfg/defaults"},
		{Name: "defaults/linux", Path: "/opt/tool/etc/scopecfg/defaults/linux"},
		{Name: "site", Path: "/opt/tool/etc/scopecfg"},
		{Name: "site/linux", Path: "/opt/tool/etc/scopecfg/linux"},
		{Name: "user", Path: "/home/u/.scopecfg"},
		{Name: "user/linux", Path: "/home/u/.scopecfg/linux"},
	}
	assert.Equal(t, want, p.Entries())

	r, err := Standard(p, WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)
	assert.Equal(t, []string{"defaults", "defaults/linux", "site", "site/linux", "user", "user/linux"}, r.Names())
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "defaults", TierDefaults.String())
	assert.Equal(t, "user", TierUser.String())
	assert.Equal(t, "unknown", Tier(42).String())
}
