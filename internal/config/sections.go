package config

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// Section accessor methods return snapshot structs decoded from the merged
// section. Mutating the returned value does not modify the configuration.
// Use Config.Update to change settings.

// PackageSettings holds the build preferences of one package.
type PackageSettings struct {
	// Version lists preferred versions, most preferred first.
	Version []string `mapstructure:"version"`

	// Compiler lists preferred compilers.
	Compiler []string `mapstructure:"compiler"`

	// Buildable is false when the package must come from an external
	// installation.
	Buildable bool `mapstructure:"buildable"`

	// Modules maps spec strings to environment modules providing them.
	Modules map[string]string `mapstructure:"modules"`

	// Paths maps spec strings to installation prefixes.
	Paths map[string]string `mapstructure:"paths"`

	// Providers maps virtual packages to preferred providers.
	Providers map[string][]string `mapstructure:"providers"`

	// Variants lists preferred variant settings.
	Variants []string `mapstructure:"variants"`
}

// Settings holds the general settings of the config section.
type Settings struct {
	InstallTree       string            `mapstructure:"install_tree"`
	InstallHashLength int               `mapstructure:"install_hash_length"`
	BuildStage        []string          `mapstructure:"build_stage"`
	TemplateDirs      []string          `mapstructure:"template_dirs"`
	ModuleRoots       map[string]string `mapstructure:"module_roots"`
	SourceCache       string            `mapstructure:"source_cache"`
	MiscCache         string            `mapstructure:"misc_cache"`
	VerifySSL         bool              `mapstructure:"verify_ssl"`
	Checksum          bool              `mapstructure:"checksum"`
	Dirty             bool              `mapstructure:"dirty"`
	BuildJobs         int               `mapstructure:"build_jobs"`
}

// DefaultSettings returns the settings used for keys no scope sets.
func DefaultSettings() Settings {
	return Settings{
		VerifySSL: true,
		Checksum:  true,
	}
}

// Packages returns the merged package preferences keyed by package name.
// The "all" entry, when present, holds preferences for every package.
func (c *Config) Packages() (map[string]PackageSettings, error) {
	value, err := c.Resolve(PackagesSection, "")
	if err != nil {
		return nil, err
	}

	result := make(map[string]PackageSettings, value.Len())
	for _, name := range value.Keys() {
		entry, _ := value.Get(name)
		ps := PackageSettings{Buildable: true}
		if err := decodeSection(entry, &ps); err != nil {
			return nil, fmt.Errorf("decoding package %s: %w", name, err)
		}
		result[name] = ps
	}
	return result, nil
}

// Settings returns the merged config section.
func (c *Config) Settings() (Settings, error) {
	value, err := c.Resolve("config", "")
	if err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	if err := decodeSection(value, &s); err != nil {
		return Settings{}, fmt.Errorf("decoding config section: %w", err)
	}
	return s, nil
}

// Repos returns the merged list of package repositories.
func (c *Config) Repos() ([]string, error) {
	value, err := c.Resolve("repos", "")
	if err != nil {
		return nil, err
	}
	if !value.IsSequence() {
		return nil, nil
	}

	var repos []string
	if err := decodeSection(value, &repos); err != nil {
		return nil, fmt.Errorf("decoding repos section: %w", err)
	}
	return repos, nil
}

func decodeSection(value *tree.Node, out any) error {
	if value.IsNull() {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToListHook,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(value.Interface())
}

// stringToListHook turns a single string into a one-element list for
// settings that accept either form.
func stringToListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	return []string{reflect.ValueOf(data).String()}, nil
}
