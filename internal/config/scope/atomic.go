package scope

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// writeFileAtomic replaces path with data so readers see either the old or
// the new contents. The OS file system goes through writeOSFile; other file
// systems use a temporary file and rename.
func writeFileAtomic(fsys afero.Fs, path string, data []byte, perm os.FileMode) error {
	if _, ok := fsys.(*afero.OsFs); ok {
		return writeOSFile(path, data, perm)
	}

	tmp, err := afero.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(name)
		return err
	}
	if err := fsys.Chmod(name, perm); err != nil {
		_ = fsys.Remove(name)
		return err
	}
	if err := fsys.Rename(name, path); err != nil {
		_ = fsys.Remove(name)
		return err
	}
	return nil
}
