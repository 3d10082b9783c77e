// Package afdconfig reads etc/AFD_CONFIG and gives access to the other etc
// files the web UI may edit.
package afdconfig

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"afd-webui/internal/fsops"
)

// Config holds the AFD_CONFIG entries. A key may occur more than once.
type Config struct {
	values map[string][]string
	keys   []string
}

var (
	skipRe = regexp.MustCompile(`^(?:$|#|\s)`)
	kvRe   = regexp.MustCompile(`^(\S+)\s+(.*)$`)
)

// Parse reads AFD_CONFIG text. Blank lines, comments and indented lines are
// skipped, as are keys without a value.
func Parse(r io.Reader) (*Config, error) {
	c := &Config{values: map[string][]string{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if skipRe.MatchString(line) {
			continue
		}
		m := kvRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, seen := c.values[m[1]]; !seen {
			c.keys = append(c.keys, m[1])
		}
		c.values[m[1]] = append(c.values[m[1]], strings.TrimSpace(m[2]))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load parses the Latin-1 file at path.
func Load(path string) (*Config, error) {
	text, err := fsops.ReadLatin1File(path)
	if err != nil {
		return nil, err
	}
	return Parse(strings.NewReader(text))
}

// Get returns the first value of key.
func (c *Config) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v := c.values[key]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// All returns every value of key in file order.
func (c *Config) All(key string) []string {
	if c == nil {
		return nil
	}
	return c.values[key]
}

// Keys lists the keys in order of first appearance.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	return c.keys
}
