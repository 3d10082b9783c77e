package afdconfig

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"afd-webui/internal/fsops"
)

// ErrNotEditable is returned for etc files outside the editable set.
var ErrNotEditable = errors.New("file is not editable")

// EditableNames returns the file names (relative to etc) the web UI may edit:
// group.list, the rename rule files and the DIR_CONFIG files.
func EditableNames(c *Config) []string {
	names := []string{"group.list"}
	if rr := c.All("RENAME_RULE_NAME"); len(rr) > 0 {
		names = append(names, rr...)
	} else {
		names = append(names, "rename.rule")
	}
	if dc := c.All("DIR_CONFIG_NAME"); len(dc) > 0 {
		names = append(names, dc...)
	} else {
		names = append(names, "DIR_CONFIG")
	}
	out := names[:0]
	seen := map[string]bool{}
	for _, n := range names {
		n = filepath.ToSlash(strings.TrimSpace(n))
		if n == "" || seen[n] || !safeName(n) {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func safeName(n string) bool {
	if strings.HasPrefix(n, "/") || strings.ContainsAny(n, `*?[]{},\`) {
		return false
	}
	for _, seg := range strings.Split(n, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}

// EditableFiles lists the editable files that exist in etcDir, sorted.
func EditableFiles(etcDir string, c *Config) ([]string, error) {
	names := EditableNames(c)
	if len(names) == 0 {
		return nil, nil
	}
	pattern := "{" + strings.Join(names, ",") + "}"
	files, err := doublestar.Glob(os.DirFS(etcDir), pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// EtcFiles reads and saves editable files below Dir (the AFD etc directory).
type EtcFiles struct {
	Dir    string
	Config *Config
}

// IsEditable reports whether name is one of the existing editable files.
func (e EtcFiles) IsEditable(name string) bool {
	files, err := EditableFiles(e.Dir, e.Config)
	if err != nil {
		return false
	}
	for _, f := range files {
		if f == name {
			return true
		}
	}
	return false
}

func (e EtcFiles) path(name string) (string, error) {
	if !e.IsEditable(name) {
		return "", ErrNotEditable
	}
	return fsops.Resolve(e.Dir, name, false)
}

// Read returns the content of name as UTF-8.
func (e EtcFiles) Read(name string) (string, error) {
	p, err := e.path(name)
	if err != nil {
		return "", err
	}
	return fsops.ReadLatin1File(p)
}

// Save replaces name with text, written as Latin-1.
func (e EtcFiles) Save(name, text string) error {
	p, err := e.path(name)
	if err != nil {
		return err
	}
	return fsops.WriteLatin1FileAtomic(p, text)
}
