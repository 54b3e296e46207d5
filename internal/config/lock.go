package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/dshills/scopecfg/internal/config/scope"
)

// lock acquires the lock file of the target section file.
func (c *Config) lock(ctx context.Context, target *scope.Scope, section string) (func(), error) {
	path, err := target.SectionFilePath(section)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(target.Dir()); err != nil {
		return nil, &FileError{Op: "create directory for", Path: path, Err: err}
	}

	fileLock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		if lockCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s after %v", ErrLockTimeout, path, c.lockTimeout)
		}
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s after %v", ErrLockTimeout, path, c.lockTimeout)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("failed to release config lock")
		}
	}, nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
