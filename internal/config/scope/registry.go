package scope

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// Registry holds scopes in precedence order. Scopes added later take
// precedence over scopes added earlier.
type Registry struct {
	mu     sync.RWMutex
	scopes []*Scope
	byName map[string]*Scope
}

// NewRegistry creates a registry holding scopes in the given order.
func NewRegistry(scopes ...*Scope) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Scope)}
	for _, s := range scopes {
		if err := r.Add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add appends a scope above every existing scope.
func (r *Registry) Add(s *Scope) error {
	if s == nil || s.name == "" {
		return fmt.Errorf("scope name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[s.name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateScope, s.name)
	}
	r.scopes = append(r.scopes, s)
	r.byName[s.name] = s
	return nil
}

// Get returns a scope by name, or nil if not found.
func (r *Registry) Get(name string) *Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// Lookup returns the named scope. An empty name selects the highest scope.
func (r *Registry) Lookup(name string) (*Scope, error) {
	if name == "" {
		return r.Highest()
	}
	if s := r.Get(name); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q (options are: %s)", ErrUnknownScope, name, strings.Join(r.Names(), ", "))
}

// Highest returns the highest-precedence scope.
func (r *Registry) Highest() (*Scope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.scopes) == 0 {
		return nil, ErrNoScopes
	}
	return r.scopes[len(r.scopes)-1], nil
}

// Scopes returns the scopes in ascending precedence.
func (r *Registry) Scopes() []*Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Scope, len(r.scopes))
	copy(result, r.scopes)
	return result
}

// Names returns scope names in ascending precedence.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.scopes))
	for i, s := range r.scopes {
		names[i] = s.name
	}
	return names
}

// Len returns the number of scopes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}

// ClearCaches drops the cached documents of every scope.
func (r *Registry) ClearCaches() {
	for _, s := range r.Scopes() {
		s.Clear()
	}
}

// Contributions reads the section from each scope, lowest first, ready for
// Fold. The first read error aborts.
func (r *Registry) Contributions(section string) ([]Contribution, error) {
	scopes := r.Scopes()
	result := make([]Contribution, 0, len(scopes))
	for _, s := range scopes {
		c, err := s.Contribution(section)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// Resolve folds the section across every scope. Malformed scopes are passed
// to warn and skipped.
func (r *Registry) Resolve(section string, warn func(MalformedScopeWarning)) (*tree.Node, error) {
	contributions, err := r.Contributions(section)
	if err != nil {
		return nil, err
	}
	return Fold(section, contributions, warn), nil
}
