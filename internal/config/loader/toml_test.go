package loader

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOMLLoader_LoadFrom(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/tool/settings.toml", []byte("level = \"debug\"\n[paths]\nroot = \"/opt\"\n"), 0o644))

	l := NewTOMLLoaderWithFS(fs, "/etc/tool/settings.toml")
	config, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", config["level"])
	assert.Equal(t, map[string]any{"root": "/opt"}, config["paths"])

	missing, err := l.LoadFrom("/etc/tool/missing.toml")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTOMLLoader_ParseError(t *testing.T) {
	l := NewTOMLLoader("")
	_, err := l.LoadFromReader(strings.NewReader("a = 1\nb = = 2\n"))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "<reader>", pe.Path)
	assert.Equal(t, 2, pe.Line)
	assert.Greater(t, pe.Column, 0)
}

func TestTOMLLoader_LoadManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	manifest := `
[[scope]]
name = "defaults"
path = "etc/defaults"

[[scope]]
name = "user"
path = "/home/u/.scopecfg"
`
	require.NoError(t, afero.WriteFile(fs, "/opt/tool/scopes.toml", []byte(manifest), 0o644))

	m, err := NewTOMLLoaderWithFS(fs, "/opt/tool/scopes.toml").LoadManifest()
	require.NoError(t, err)
	require.Len(t, m.Scopes, 2)
	assert.Equal(t, ScopeEntry{Name: "defaults", Path: "/opt/tool/etc/defaults"}, m.Scopes[0])
	assert.Equal(t, ScopeEntry{Name: "user", Path: "/home/u/.scopecfg"}, m.Scopes[1])
}

func TestTOMLLoader_LoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     string
	}{
		{"missing name", "[[scope]]\npath = \"/a\"\n", "has no name"},
		{"missing path", "[[scope]]\nname = \"a\"\n", "has no path"},
		{"unknown key", "[[scope]]\nname = \"a\"\npath = \"/a\"\nrank = 1\n", "invalid scope manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/scopes.toml", []byte(tt.manifest), 0o644))

			_, err := NewTOMLLoaderWithFS(fs, "/scopes.toml").LoadManifest()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTOMLLoader_LoadManifestMissing(t *testing.T) {
	m, err := NewTOMLLoaderWithFS(afero.NewMemMapFs(), "/nope/scopes.toml").LoadManifest()
	require.NoError(t, err)
	assert.Nil(t, m)
}
