package config

import (
	"context"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// PackagesSection is the section holding per-package preferences.
const PackagesSection = "packages"

// External is a package installed outside the tool, declared under a
// package's paths (Prefix set) or modules (Module set) settings.
type External struct {
	// Spec is the spec string the installation provides, e.g. "mpich@3.2".
	Spec string

	// Prefix is the installation prefix.
	Prefix string

	// Module is the environment module that provides the installation.
	Module string
}

// IsExternal reports whether the entry points at a real installation.
func (e External) IsExternal() bool {
	return e.Prefix != "" || e.Module != ""
}

func (c *Config) packageEntry(pkg string) (*tree.Node, error) {
	all, err := c.Resolve(PackagesSection, "")
	if err != nil {
		return nil, err
	}
	entry, _ := all.Get(pkg)
	return entry, nil
}

// IsBuildable reports whether the tool may build pkg from source. Packages
// without settings, or without a buildable setting, are buildable.
func (c *Config) IsBuildable(pkg string) (bool, error) {
	entry, err := c.packageEntry(pkg)
	if err != nil {
		return false, err
	}
	v, ok := entry.Get("buildable")
	if !ok {
		return true, nil
	}
	b, ok := v.Bool()
	if !ok {
		return true, nil
	}
	return b, nil
}

// Externals returns the external installations declared for pkg: first the
// entries of its paths setting, then those of its modules setting, each in
// file order. Entries with an empty or null location are skipped.
func (c *Config) Externals(pkg string) ([]External, error) {
	entry, err := c.packageEntry(pkg)
	if err != nil {
		return nil, err
	}

	var result []External
	if paths, ok := entry.Get("paths"); ok {
		for _, spec := range paths.Keys() {
			v, _ := paths.Get(spec)
			if prefix, ok := v.Str(); ok && prefix != "" {
				result = append(result, External{Spec: spec, Prefix: prefix})
			}
		}
	}
	if modules, ok := entry.Get("modules"); ok {
		for _, spec := range modules.Keys() {
			v, _ := modules.Get(spec)
			if module, ok := v.Str(); ok && module != "" {
				result = append(result, External{Spec: spec, Module: module})
			}
		}
	}
	return result, nil
}

// SetBuildable records whether pkg may be built from source at a scope. The
// package's other settings are kept.
func (c *Config) SetBuildable(ctx context.Context, pkg string, buildable bool, scopeName string) error {
	entry, err := c.packageEntry(pkg)
	if err != nil {
		return err
	}
	if !entry.IsMapping() {
		entry = tree.Mapping()
	}
	entry.Set("buildable", tree.Scalar(buildable))

	data := tree.Mapping()
	data.Set(pkg, entry)
	return c.Update(ctx, PackagesSection, data, scopeName)
}
