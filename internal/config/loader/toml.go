package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// ManifestFilename is the conventional name of the scope manifest.
const ManifestFilename = "scopes.toml"

// TOMLLoader loads configuration from TOML files.
type TOMLLoader struct {
	fs   afero.Fs
	path string
}

// NewTOMLLoader creates a new TOML loader for the given path.
func NewTOMLLoader(path string) *TOMLLoader {
	return &TOMLLoader{
		fs:   DefaultFS(),
		path: path,
	}
}

// NewTOMLLoaderWithFS creates a TOML loader with a custom file system.
func NewTOMLLoaderWithFS(fs afero.Fs, path string) *TOMLLoader {
	return &TOMLLoader{
		fs:   fs,
		path: path,
	}
}

// Load reads configuration from the configured path.
func (l *TOMLLoader) Load() (map[string]any, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads configuration from a specific path.
// Returns nil, nil if the file doesn't exist.
func (l *TOMLLoader) LoadFrom(path string) (map[string]any, error) {
	data, err := readFile(l.fs, path)
	if err != nil || data == nil {
		return nil, err
	}

	return l.parse(path, data)
}

// LoadFromReader reads configuration from an io.Reader.
func (l *TOMLLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return l.parse("<reader>", data)
}

// parse parses TOML data into a map.
func (l *TOMLLoader) parse(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		pe := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			pe.Line, pe.Column = derr.Position()
		}
		return nil, pe
	}
	if config == nil {
		config = make(map[string]any)
	}

	return config, nil
}

// ScopeEntry is one scope declared in the manifest.
type ScopeEntry struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// Manifest lists scopes from lowest to highest precedence.
type Manifest struct {
	Scopes []ScopeEntry `mapstructure:"scope"`
}

// LoadManifest reads a scope manifest:
//
//	[[scope]]
//	name = "defaults"
//	path = "etc/defaults"
//
// Relative paths are resolved against the manifest's directory. Returns
// nil, nil if the manifest doesn't exist.
func (l *TOMLLoader) LoadManifest() (*Manifest, error) {
	raw, err := l.Load()
	if err != nil || raw == nil {
		return nil, err
	}

	var m Manifest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &m,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid scope manifest %s: %w", l.path, err)
	}

	base := filepath.Dir(l.path)
	for i := range m.Scopes {
		entry := &m.Scopes[i]
		if entry.Name == "" {
			return nil, fmt.Errorf("invalid scope manifest %s: scope %d has no name", l.path, i+1)
		}
		if entry.Path == "" {
			return nil, fmt.Errorf("invalid scope manifest %s: scope %q has no path", l.path, entry.Name)
		}
		if !filepath.IsAbs(entry.Path) {
			entry.Path = filepath.Join(base, entry.Path)
		}
	}

	return &m, nil
}
