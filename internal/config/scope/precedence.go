package scope

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/dshills/scopecfg/internal/config/loader"
)

// Tier is a standard precedence level. Each tier contributes a generic scope
// and a platform-specific scope directly above it.
type Tier int

const (
	// TierDefaults holds the defaults shipped with the installation.
	TierDefaults Tier = iota

	// TierSite holds settings for every user of the installation.
	TierSite

	// TierUser holds the current user's settings.
	TierUser
)

// StandardTierNames defines scope names for the standard tiers.
var StandardTierNames = map[Tier]string{
	TierDefaults: "defaults",
	TierSite:     "site",
	TierUser:     "user",
}

// String returns the scope name of the tier.
func (t Tier) String() string {
	if name, ok := StandardTierNames[t]; ok {
		return name
	}
	return "unknown"
}

// Paths locates the standard scope directories.
type Paths struct {
	// Prefix is the installation root. Defaults live in
	// <Prefix>/etc/scopecfg/defaults and site settings in
	// <Prefix>/etc/scopecfg.
	Prefix string

	// UserDir is the user scope directory. Defaults to DefaultUserDir.
	UserDir string

	// Platform names the platform subdirectory of each tier. Defaults to
	// the running operating system.
	Platform string
}

// DefaultUserDir returns ~/.scopecfg, or an empty string if the home
// directory is unknown.
func DefaultUserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".scopecfg")
}

func (p Paths) withDefaults() Paths {
	if p.UserDir == "" {
		p.UserDir = DefaultUserDir()
	}
	if p.Platform == "" {
		p.Platform = runtime.GOOS
	}
	return p
}

// Dir returns the directory of a tier.
func (p Paths) Dir(t Tier) string {
	switch t {
	case TierDefaults:
		return filepath.Join(p.Prefix, "etc", "scopecfg", "defaults")
	case TierSite:
		return filepath.Join(p.Prefix, "etc", "scopecfg")
	case TierUser:
		return p.UserDir
	default:
		return ""
	}
}

// Entries returns the standard scopes in ascending precedence: each tier
// followed by its platform scope.
func (p Paths) Entries() []loader.ScopeEntry {
	p = p.withDefaults()

	entries := make([]loader.ScopeEntry, 0, 6)
	for _, t := range []Tier{TierDefaults, TierSite, TierUser} {
		dir := p.Dir(t)
		entries = append(entries,
			loader.ScopeEntry{Name: t.String(), Path: dir},
			loader.ScopeEntry{Name: t.String() + "/" + p.Platform, Path: filepath.Join(dir, p.Platform)},
		)
	}
	return entries
}

// FromEntries creates a registry with one scope per entry, in entry order.
func FromEntries(entries []loader.ScopeEntry, opts ...Option) (*Registry, error) {
	scopes := make([]*Scope, 0, len(entries))
	for _, e := range entries {
		scopes = append(scopes, New(e.Name, e.Path, opts...))
	}
	return NewRegistry(scopes...)
}

// Standard creates the registry of standard scopes.
func Standard(p Paths, opts ...Option) (*Registry, error) {
	return FromEntries(p.Entries(), opts...)
}
