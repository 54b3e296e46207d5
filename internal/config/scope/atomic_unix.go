//go:build !windows

package scope

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// writeOSFile writes data with renameio: temp file, fsync, then rename.
func writeOSFile(path string, data []byte, perm os.FileMode) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
