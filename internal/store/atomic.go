package store

import (
	"os"
	"path/filepath"
)

// writeFileAtomic writes to a temp file in the target's directory and
// renames it into place, so an interrupt mid-write never leaves a
// truncated file behind: the previous content stays readable.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
