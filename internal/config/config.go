package config

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/scopecfg/internal/config/notify"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/scope"
	"github.com/dshills/scopecfg/internal/config/tree"
)

// Config resolves, updates and renders configuration sections across an
// ordered set of scopes.
type Config struct {
	// mu serializes updates within the process.
	mu sync.Mutex

	scopes   *scope.Registry
	sections *registry.Registry

	notifier     *notify.Notifier
	ownsNotifier bool

	logger zerolog.Logger
	warn   func(MalformedScopeWarning)

	// lockTimeout enables the cross-process update lock when positive.
	lockTimeout time.Duration
}

// Option configures a Config instance.
type Option func(*Config)

// WithRegistry sets the section registry. Scopes should be created with the
// same registry.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Config) {
		c.sections = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithWarningHandler sets a handler called for every malformed scope met
// while resolving. Warnings are logged either way.
func WithWarningHandler(handler func(MalformedScopeWarning)) Option {
	return func(c *Config) {
		c.warn = handler
	}
}

// WithNotifier sets the change notifier. The caller keeps ownership.
func WithNotifier(n *notify.Notifier) Option {
	return func(c *Config) {
		c.notifier = n
	}
}

// WithFileLock guards every update with a lock file next to the target
// section file, waiting at most timeout to acquire it.
func WithFileLock(timeout time.Duration) Option {
	return func(c *Config) {
		c.lockTimeout = timeout
	}
}

// New creates a Config over scopes, ordered lowest to highest precedence.
func New(scopes *scope.Registry, opts ...Option) *Config {
	c := &Config{
		scopes: scopes,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.scopes == nil {
		c.scopes, _ = scope.NewRegistry()
	}
	if c.sections == nil {
		c.sections = registry.NewWithDefaults()
	}
	if c.notifier == nil {
		c.notifier = notify.New()
		c.ownsNotifier = true
	}

	return c
}

// Close releases the notifier if Config created it.
func (c *Config) Close() {
	if c.ownsNotifier {
		c.notifier.Close()
	}
}

// Sections returns the section registry.
func (c *Config) Sections() *registry.Registry {
	return c.sections
}

// Scopes returns the scopes in ascending precedence.
func (c *Config) Scopes() []*scope.Scope {
	return c.scopes.Scopes()
}

// HighestScope returns the highest-precedence scope.
func (c *Config) HighestScope() (*scope.Scope, error) {
	return c.scopes.Highest()
}

// Resolve returns the merged value of a section. An empty scopeName folds
// every scope in precedence order; otherwise only the named scope is read.
// When no scope contributes the result is an empty mapping. The result is
// owned by the caller.
func (c *Config) Resolve(section, scopeName string) (*tree.Node, error) {
	if _, err := c.sections.Lookup(section); err != nil {
		return nil, err
	}

	if scopeName == "" {
		return c.scopes.Resolve(section, c.warning)
	}

	s, err := c.scopes.Lookup(scopeName)
	if err != nil {
		return nil, err
	}
	contribution, err := s.Contribution(section)
	if err != nil {
		return nil, err
	}
	return scope.Fold(section, []scope.Contribution{contribution}, c.warning), nil
}

// Update writes data into a section at one scope. An empty scopeName targets
// the highest-precedence scope.
//
// The value written starts from the section's current merged value. Sequence
// data replaces it. Mapping data overwrites its top-level keys, without
// merging nested values. Any other data fails with ErrInvalidUpdate.
func (c *Config) Update(ctx context.Context, section string, data *tree.Node, scopeName string) error {
	if _, err := c.sections.Lookup(section); err != nil {
		return err
	}
	target, err := c.scopes.Lookup(scopeName)
	if err != nil {
		return err
	}
	if !data.IsSequence() && !data.IsMapping() {
		return fmt.Errorf("%w: got %s", ErrInvalidUpdate, data.TypeName())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lockTimeout > 0 {
		unlock, err := c.lock(ctx, target, section)
		if err != nil {
			return err
		}
		defer unlock()

		// Another process may have written since the caches were filled.
		for _, s := range c.scopes.Scopes() {
			s.Invalidate(section)
		}
	}

	current, err := c.Resolve(section, "")
	if err != nil {
		return err
	}

	var value *tree.Node
	if data.IsSequence() {
		value = data.Clone()
	} else {
		value = current
		if !value.IsMapping() {
			value = tree.Mapping()
		}
		for _, key := range data.Keys() {
			v, _ := data.Get(key)
			value.Set(key, v.Clone())
		}
	}

	if err := target.WriteSection(section, value); err != nil {
		return err
	}

	c.logger.Debug().Str("section", section).Str("scope", target.Name()).Msg("updated section")
	c.notifier.NotifyUpdate(section, target.Name(), value.Clone(), "update")
	return nil
}

// Render writes the merged section as a YAML document rooted at the section
// name. Every failure is wrapped with ErrRender.
func (c *Config) Render(w io.Writer, section string) error {
	value, err := c.Resolve(section, "")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, section, err)
	}

	doc := tree.Mapping()
	doc.Set(section, value)

	data, err := tree.EncodeYAML(doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, section, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, section, err)
	}
	return nil
}

// SectionFilename returns the path of a section's file in a scope. An empty
// scopeName selects the highest-precedence scope.
func (c *Config) SectionFilename(scopeName, section string) (string, error) {
	if _, err := c.sections.Lookup(section); err != nil {
		return "", err
	}
	s, err := c.scopes.Lookup(scopeName)
	if err != nil {
		return "", err
	}
	return s.SectionFilePath(section)
}

// ClearCaches drops every scope's cached documents so the next read goes to
// disk.
func (c *Config) ClearCaches() {
	c.scopes.ClearCaches()
	c.notifier.NotifyReload("", "clear")
}

// Subscribe registers an observer for all configuration changes.
func (c *Config) Subscribe(observer notify.Observer) *notify.Subscription {
	return c.notifier.Subscribe(observer)
}

// SubscribeSection registers an observer for changes to one section.
func (c *Config) SubscribeSection(section string, observer notify.Observer) *notify.Subscription {
	return c.notifier.SubscribeSection(section, observer)
}

func (c *Config) warning(w MalformedScopeWarning) {
	c.logger.Warn().
		Str("scope", w.Scope).
		Str("path", w.Path).
		Str("section", w.Section).
		Msg("skipping bad configuration file")
	if c.warn != nil {
		c.warn(w)
	}
}
