package pathutil

import (
	"fmt"
	"path"
	"strings"
)

// MaxPath bounds request paths below the AFD work dir.
const MaxPath = 1024

// CleanRel validates a slash separated path taken from a request (archive
// files, etc file names) and returns it relative, without leading slash:
//   - '//' and '/./' collapse
//   - '..' segments are forbidden
//   - NUL, control characters and backslashes are rejected
func CleanRel(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty path")
	}
	if len(raw) > MaxPath {
		return "", fmt.Errorf("path length %d exceeds %d", len(raw), MaxPath)
	}
	if strings.Contains(raw, "\\") {
		return "", fmt.Errorf("backslash not allowed")
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == 0 {
			return "", fmt.Errorf("NUL not allowed")
		}
		if c < 0x20 || c == 0x7F {
			return "", fmt.Errorf("control/DEL not allowed")
		}
	}
	for _, s := range strings.Split(raw, "/") {
		if s == ".." {
			return "", fmt.Errorf(".. segment not allowed")
		}
	}
	p := strings.TrimPrefix(path.Clean("/"+raw), "/")
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	return p, nil
}

// ValidAlias reports whether a is usable as a host alias in a command line
// or file name (INFO-<alias>).
func ValidAlias(a string) bool {
	if a == "" || len(a) > 40 {
		return false
	}
	for i := 0; i < len(a); i++ {
		c := a[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == '+':
		default:
			return false
		}
	}
	return a != "." && a != ".." && a[0] != '-'
}
