package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var ErrSymlinkNotAllowed = errors.New("symlink not allowed")

// Resolve joins a slash separated relative path onto rootAbs and makes sure
// the result stays inside root, without following symlinks. The last
// component may be missing when allowMissingLast is set (save targets).
func Resolve(rootAbs, rel string, allowMissingLast bool) (string, error) {
	cleanRoot := filepath.Clean(rootAbs)
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	p, err := ensureWithinRoot(cleanRoot, filepath.Join(cleanRoot, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	if err := LstatNoSymlink(cleanRoot, p, allowMissingLast); err != nil {
		return "", err
	}
	return p, nil
}

func ensureWithinRoot(cleanRoot, p string) (string, error) {
	cleanP := filepath.Clean(p)
	relCheck, err := filepath.Rel(cleanRoot, cleanP)
	if err != nil {
		return "", err
	}
	if relCheck == ".." || strings.HasPrefix(relCheck, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root")
	}
	return cleanP, nil
}

// LstatNoSymlink walks from root to absPath (inclusive where it exists) and rejects any symlink.
// For creation paths, allowMissingLast can be set so that the last component may not exist yet.
func LstatNoSymlink(rootAbs, absPath string, allowMissingLast bool) error {
	cleanRoot := filepath.Clean(rootAbs)
	cleanP := filepath.Clean(absPath)
	rel, err := filepath.Rel(cleanRoot, cleanP)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	parts := strings.Split(rel, string(filepath.Separator))
	cur := cleanRoot
	for i, part := range parts {
		if part == "" || part == "." {
			continue
		}
		cur = filepath.Join(cur, part)
		fi, err := os.Lstat(cur)
		if err != nil {
			if allowMissingLast && i == len(parts)-1 && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return ErrSymlinkNotAllowed
		}
	}
	return nil
}

// FileMode returns the permission bits of path, or def when it cannot be
// stat'ed (new files).
func FileMode(path string, def os.FileMode) os.FileMode {
	fi, err := os.Stat(path)
	if err != nil {
		return def
	}
	return fi.Mode().Perm()
}
