// Package registry provides the section registry.
//
// The registry maintains the closed set of configuration sections the tool
// understands, each with the schema its files are validated against. Asking
// for a section that is not registered is always an error.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/scopecfg/internal/config/schema"
)

var (
	// ErrUnknownSection is returned for a section name that is not registered.
	ErrUnknownSection = errors.New("unknown config section")

	// ErrSectionAlreadyRegistered is returned when registering a duplicate section.
	ErrSectionAlreadyRegistered = errors.New("section already registered")
)

// Registry maintains all known sections.
type Registry struct {
	mu       sync.RWMutex
	sections map[string]*Section
}

// New creates an empty section registry.
func New() *Registry {
	return &Registry{
		sections: make(map[string]*Section),
	}
}

// NewWithDefaults creates a registry holding the built-in sections.
func NewWithDefaults() *Registry {
	r := New()
	r.RegisterDefaults()
	return r
}

// Register adds a section to the registry.
// Returns an error if a section with the same name already exists.
func (r *Registry) Register(section Section) error {
	if section.Name == "" {
		return errors.New("section name is required")
	}
	if section.Schema == nil {
		return fmt.Errorf("section %s: schema is required", section.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sections[section.Name]; exists {
		return fmt.Errorf("%w: %s", ErrSectionAlreadyRegistered, section.Name)
	}

	s := section
	s.validator = schema.NewValidator(schema.Document(s.Name, s.Schema))
	r.sections[section.Name] = &s
	return nil
}

// MustRegister registers a section and panics on error.
// Useful for registering built-in sections at init time.
func (r *Registry) MustRegister(section Section) {
	if err := r.Register(section); err != nil {
		panic(err)
	}
}

// Get returns the section with the given name, or nil.
func (r *Registry) Get(name string) *Section {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sections[name]
}

// Lookup returns the section with the given name. An unregistered name
// yields an error wrapping ErrUnknownSection that lists the valid names.
func (r *Registry) Lookup(name string) (*Section, error) {
	if s := r.Get(name); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q (options are: %s)", ErrUnknownSection, name, strings.Join(r.Names(), ", "))
}

// Has checks if a section is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Names returns the registered section names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.sections))
	for name := range r.sections {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// All returns all registered sections sorted by name.
func (r *Registry) All() []*Section {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Section, 0, len(r.sections))
	for _, s := range r.sections {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// RegisterDefaults registers every section whose schema is embedded in the
// binary.
func (r *Registry) RegisterDefaults() {
	all, err := schema.LoadEmbedded()
	if err != nil {
		panic(err)
	}
	names, err := schema.EmbeddedNames()
	if err != nil {
		panic(err)
	}
	for _, name := range names {
		s := all[name]
		r.MustRegister(Section{
			Name:        name,
			Description: s.Description,
			Schema:      s,
		})
	}
}
