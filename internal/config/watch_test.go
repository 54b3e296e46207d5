package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopecfg/internal/config/notify"
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/scope"
	"github.com/dshills/scopecfg/internal/config/watcher"
)

func TestIsSectionFile(t *testing.T) {
	c, _ := newTestConfig(t, nil)

	assert.True(t, c.isSectionFile("/u/config.yaml"))
	assert.True(t, c.isSectionFile("/u/packages.yaml"))
	assert.False(t, c.isSectionFile("/u/config.yaml.lock"))
	assert.False(t, c.isSectionFile("/u/bogus.yaml"))
	assert.False(t, c.isSectionFile("/u/config.yml"))
}

func TestHandleFileChange(t *testing.T) {
	c, fs := newTestConfig(t, []testScope{
		{"defaults", map[string]string{"repos.yaml": "repos: [/d]\n"}},
		{"user", map[string]string{"repos.yaml": "repos: [/u]\n"}},
	})

	var changes []notify.Change
	c.SubscribeSection("repos", func(change notify.Change) {
		changes = append(changes, change)
	})

	assert.Equal(t, []any{"/u", "/d"}, resolve(t, c, "repos"))
	require.NoError(t, afero.WriteFile(fs, "/user/repos.yaml", []byte("repos: [/x]\n"), 0o644))

	c.handleFileChange(watcher.Event{Path: "/user/repos.yaml", Op: watcher.OpWrite})

	assert.Equal(t, []any{"/x", "/d"}, resolve(t, c, "repos"))
	require.Len(t, changes, 1)
	assert.Equal(t, notify.Change{
		Section: "repos",
		Scope:   "user",
		Type:    notify.ChangeReload,
		Source:  "watcher",
	}, changes[0])

	// Only the owning scope's cache is dropped.
	for _, s := range c.Scopes() {
		if s.Name() == "defaults" {
			assert.True(t, s.Cached("repos"))
		}
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("config:\n  build_jobs: 2\n"), 0o644))

	sections := registry.NewWithDefaults()
	reg, err := scope.NewRegistry(
		scope.New("site", filepath.Join(dir, "missing"), scope.WithSections(sections)),
		scope.New("user", userDir, scope.WithSections(sections)),
	)
	require.NoError(t, err)

	c := New(reg, WithRegistry(sections))
	defer c.Close()

	var mu sync.Mutex
	var reloaded []string
	c.Subscribe(func(change notify.Change) {
		if change.Type != notify.ChangeReload {
			return
		}
		mu.Lock()
		reloaded = append(reloaded, change.Scope+"/"+change.Section)
		mu.Unlock()
	})

	jobs, err := c.GetInt("config.build_jobs")
	require.NoError(t, err)
	assert.Equal(t, 2, jobs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := c.Watch(ctx, watcher.WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()
	assert.Equal(t, []string{userDir}, w.WatchedDirs())

	require.NoError(t, os.WriteFile(filepath.Join(userDir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("config:\n  build_jobs: 12\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reloaded) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Contains(t, reloaded, "user/config")
	for _, r := range reloaded {
		assert.Equal(t, "user/config", r)
	}
	mu.Unlock()

	jobs, err = c.GetInt("config.build_jobs")
	require.NoError(t, err)
	assert.Equal(t, 12, jobs)
}
