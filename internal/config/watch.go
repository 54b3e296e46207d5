package config

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dshills/scopecfg/internal/config/notify"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/watcher"
)

// Watch starts watching every existing scope directory. When a section file
// changes, the owning scope's cached copy is dropped and a reload change is
// sent to subscribers. Watching stops when ctx is done or the returned
// watcher is stopped.
func (c *Config) Watch(ctx context.Context, opts ...watcher.Option) (*watcher.Watcher, error) {
	opts = append([]watcher.Option{
		watcher.WithFilter(c.isSectionFile),
		watcher.WithLogger(c.logger),
	}, opts...)

	w, err := watcher.New(opts...)
	if err != nil {
		return nil, err
	}

	for _, s := range c.scopes.Scopes() {
		ok, err := w.WatchDir(s.Dir())
		if err != nil {
			_ = w.Stop()
			return nil, err
		}
		if !ok {
			c.logger.Debug().Str("scope", s.Name()).Str("dir", s.Dir()).Msg("scope directory missing, not watched")
		}
	}

	w.OnChange(c.handleFileChange)
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}

func (c *Config) isSectionFile(path string) bool {
	name := strings.TrimSuffix(filepath.Base(path), registry.FileExt)
	return strings.HasSuffix(path, registry.FileExt) && c.sections.Has(name)
}

// handleFileChange handles file change events from the watcher.
func (c *Config) handleFileChange(event watcher.Event) {
	section := strings.TrimSuffix(filepath.Base(event.Path), registry.FileExt)
	dir := filepath.Clean(filepath.Dir(event.Path))

	for _, s := range c.scopes.Scopes() {
		abs, err := filepath.Abs(s.Dir())
		if err != nil || filepath.Clean(abs) != dir {
			continue
		}
		s.Invalidate(section)
		c.logger.Debug().
			Str("scope", s.Name()).
			Str("section", section).
			Str("op", event.Op.String()).
			Msg("section file changed")
		c.notifier.Notify(notify.Change{
			Section: section,
			Scope:   s.Name(),
			Type:    notify.ChangeReload,
			Source:  "watcher",
		})
	}
}
