package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"

	"github.com/dshills/scopecfg/internal/config/loader"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/scope"
	"github.com/dshills/scopecfg/internal/log"
)

// Bootstrap locates the scopes of an installation. Empty fields take
// defaults when the scopes are built.
type Bootstrap struct {
	// Prefix is the installation root.
	Prefix string `mapstructure:"prefix"`

	// UserDir is the user scope directory.
	UserDir string `mapstructure:"user_dir"`

	// Platform names the platform scopes.
	Platform string `mapstructure:"platform"`

	// ScopesFile is a TOML scope manifest replacing the standard scopes.
	ScopesFile string `mapstructure:"scopes_file"`

	// LogLevel is the log level name.
	LogLevel string `mapstructure:"log_level"`
}

// BootstrapFromEnv reads bootstrap settings from SCOPECFG_* variables.
func BootstrapFromEnv() (Bootstrap, error) {
	return bootstrapFrom(loader.NewEnvLoader(loader.EnvPrefix))
}

func bootstrapFrom(env *loader.EnvLoader) (Bootstrap, error) {
	raw, err := env.Load()
	if err != nil {
		return Bootstrap{}, err
	}

	var b Bootstrap
	if err := mapstructure.Decode(raw, &b); err != nil {
		return Bootstrap{}, fmt.Errorf("decoding environment: %w", err)
	}
	return b, nil
}

// Override returns b with every non-empty field of over applied.
func (b Bootstrap) Override(over Bootstrap) Bootstrap {
	if over.Prefix != "" {
		b.Prefix = over.Prefix
	}
	if over.UserDir != "" {
		b.UserDir = over.UserDir
	}
	if over.Platform != "" {
		b.Platform = over.Platform
	}
	if over.ScopesFile != "" {
		b.ScopesFile = over.ScopesFile
	}
	if over.LogLevel != "" {
		b.LogLevel = over.LogLevel
	}
	return b
}

// DefaultPrefix returns the directory above the running executable's
// directory, or the working directory when that is unknown.
func DefaultPrefix() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(filepath.Dir(exe))
}

// Paths returns the standard scope locations.
func (b Bootstrap) Paths() scope.Paths {
	prefix := b.Prefix
	if prefix == "" {
		prefix = DefaultPrefix()
	}
	return scope.Paths{Prefix: prefix, UserDir: b.UserDir, Platform: b.Platform}
}

// Scopes builds the scope registry. An explicit ScopesFile must exist. Without
// one, <prefix>/etc/scopecfg/scopes.toml is used when present and the
// standard scopes otherwise.
func (b Bootstrap) Scopes(fsys afero.Fs, sections *registry.Registry) (*scope.Registry, error) {
	paths := b.Paths()
	opts := []scope.Option{
		scope.WithFs(fsys),
		scope.WithSections(sections),
		scope.WithLogger(log.WithComponent("scope")),
	}

	manifestPath := b.ScopesFile
	explicit := manifestPath != ""
	if !explicit {
		manifestPath = filepath.Join(paths.Dir(scope.TierSite), loader.ManifestFilename)
	}

	manifest, err := loader.NewTOMLLoaderWithFS(fsys, manifestPath).LoadManifest()
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		if explicit {
			return nil, fmt.Errorf("scope manifest %s: %w", manifestPath, os.ErrNotExist)
		}
		return scope.Standard(paths, opts...)
	}
	return scope.FromEntries(manifest.Scopes, opts...)
}

// Open builds a Config from bootstrap settings on the OS file system.
func Open(b Bootstrap, opts ...Option) (*Config, error) {
	return OpenFs(afero.NewOsFs(), b, opts...)
}

// OpenFs builds a Config from bootstrap settings on fsys.
func OpenFs(fsys afero.Fs, b Bootstrap, opts ...Option) (*Config, error) {
	sections := registry.NewWithDefaults()

	scopes, err := b.Scopes(fsys, sections)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{
		WithRegistry(sections),
		WithLogger(log.WithComponent("config")),
	}, opts...)
	return New(scopes, opts...), nil
}
