package fsops

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams write into a temp file next to path (named after
// pattern, see os.CreateTemp) and renames it over path once it is synced
// and closed. When write or any later step fails the temp file is removed
// and path keeps its previous content.
func WriteAtomic(path string, perm os.FileMode, pattern string, write func(w io.Writer) error) (err error) {
	if pattern == "" {
		pattern = "." + filepath.Base(path) + "-*"
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		ok = true
		return err
	}
	ok = true
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, "", func(w io.Writer) error {
		n, err := w.Write(data)
		if err == nil && n != len(data) {
			err = io.ErrShortWrite
		}
		return err
	})
}

// ErrUnsupported is returned by helpers that have no implementation on the
// current platform.
var ErrUnsupported = errors.New("not supported on this platform")
