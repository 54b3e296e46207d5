// Package scope provides configuration scopes and their precedence.
//
// A scope is a named directory holding one YAML file per section. Scopes are
// ordered from lowest to highest precedence; resolving a section folds the
// documents of every scope together, letting higher scopes extend or
// override lower ones.
package scope

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/dshills/scopecfg/internal/config/loader"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/schema"
	"github.com/dshills/scopecfg/internal/config/tree"
)

// Scope is a named directory of section files with a per-section cache.
//
// A cached entry holds the whole validated file document. A nil entry value
// records that the file is absent; a null node records an empty file.
type Scope struct {
	name string
	dir  string

	fs       afero.Fs
	sections *registry.Registry
	logger   zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*tree.Node
}

// Option configures a Scope.
type Option func(*Scope)

// WithFs sets the file system the scope reads and writes.
func WithFs(fsys afero.Fs) Option {
	return func(s *Scope) {
		s.fs = fsys
	}
}

// WithSections sets the section registry used to validate documents.
func WithSections(r *registry.Registry) Option {
	return func(s *Scope) {
		s.sections = r
	}
}

// WithLogger sets the scope logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scope) {
		s.logger = logger
	}
}

// New creates a scope rooted at dir. No I/O happens until a section is read.
func New(name, dir string, opts ...Option) *Scope {
	s := &Scope{
		name:   name,
		dir:    dir,
		fs:     loader.DefaultFS(),
		logger: zerolog.Nop(),
		cache:  make(map[string]*tree.Node),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sections == nil {
		s.sections = registry.NewWithDefaults()
	}
	s.logger = s.logger.With().Str("scope", name).Logger()
	return s
}

// Name returns the scope name.
func (s *Scope) Name() string {
	return s.name
}

// Dir returns the scope directory.
func (s *Scope) Dir() string {
	return s.dir
}

// String returns a short description for diagnostics.
func (s *Scope) String() string {
	return fmt.Sprintf("<scope %s: %s>", s.name, s.dir)
}

// SectionFilePath returns the path of the section's file in this scope.
func (s *Scope) SectionFilePath(section string) (string, error) {
	sec, err := s.sections.Lookup(section)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, sec.Filename()), nil
}

// GetSection returns the section's file document, or nil when the file does
// not exist. The document is read, parsed and validated on first access and
// cached afterwards. The returned node is a copy.
func (s *Scope) GetSection(section string) (*tree.Node, error) {
	doc, err := s.section(section)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// Contribution returns the scope's section document ready for Fold.
func (s *Scope) Contribution(section string) (Contribution, error) {
	doc, err := s.section(section)
	if err != nil {
		return Contribution{}, err
	}
	path, _ := s.SectionFilePath(section)
	return Contribution{Scope: s.name, Path: path, Doc: doc}, nil
}

// section returns the cached document without copying it.
func (s *Scope) section(name string) (*tree.Node, error) {
	sec, err := s.sections.Lookup(name)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	doc, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}

	doc, err = s.load(sec)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[name] = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *Scope) load(sec *registry.Section) (*tree.Node, error) {
	path := filepath.Join(s.dir, sec.Filename())

	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &FileError{Op: "stat", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &FileError{Op: "read", Path: path, Err: ErrNotRegularFile}
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, &FileError{Op: "read", Path: path, Err: err}
	}

	doc, err := loader.ParseYAML(path, data)
	if err != nil {
		return nil, err
	}
	if doc.IsEmpty() {
		s.logger.Debug().Str("section", sec.Name).Str("path", path).Msg("empty section file")
		return tree.Null(), nil
	}

	if err := sec.Validator().Validate(doc.Root); err != nil {
		return nil, s.invalid(sec.Name, path, err, doc.Locations)
	}

	s.logger.Debug().Str("section", sec.Name).Str("path", path).Msg("loaded section file")
	return doc.Root, nil
}

func (s *Scope) invalid(section, path string, err error, locs *tree.Locations) error {
	var verrs *schema.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	verrs.Locate(locs)
	return &InvalidSectionError{Scope: s.name, Section: section, File: path, Errors: verrs}
}

// WriteSection replaces the section's file with {section: value}. The
// document is validated, with defaults injected, before anything is written;
// an invalid document leaves the file and the cache untouched. The scope
// directory is created when missing and the file is replaced atomically.
func (s *Scope) WriteSection(section string, value *tree.Node) error {
	sec, err := s.sections.Lookup(section)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, sec.Filename())

	doc := sec.Wrap(value.Clone())
	if err := sec.Validator().Validate(doc); err != nil {
		return s.invalid(sec.Name, path, err, nil)
	}

	data, err := tree.EncodeYAML(doc)
	if err != nil {
		return &FileError{Op: "encode", Path: path, Err: err}
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return &FileError{Op: "create directory for", Path: path, Err: err}
	}
	if err := writeFileAtomic(s.fs, path, data, 0o644); err != nil {
		return &FileError{Op: "write", Path: path, Err: err}
	}

	s.mu.Lock()
	s.cache[section] = doc
	s.mu.Unlock()

	s.logger.Info().Str("section", section).Str("path", path).Msg("wrote section file")
	return nil
}

// Invalidate drops the cached document for one section.
func (s *Scope) Invalidate(section string) {
	s.mu.Lock()
	delete(s.cache, section)
	s.mu.Unlock()
}

// Clear drops every cached document. The next read goes to disk.
func (s *Scope) Clear() {
	s.mu.Lock()
	s.cache = make(map[string]*tree.Node)
	s.mu.Unlock()
}

// Cached reports whether the section is cached.
func (s *Scope) Cached(section string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[section]
	return ok
}
