package hostconfig

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"afd-webui/internal/fsops"
)

// Set is a whole HOST_CONFIG file: the leading comment block, the host
// order and the records keyed by alias.
type Set struct {
	// Header holds the comment and blank lines before the first host
	// line, written back verbatim.
	Header []string
	Order  []string
	Hosts  map[string]*Host
	// Comments holds the '#' lines found between host lines, keyed by the
	// alias they precede. Trailer holds those after the last host. Blank
	// lines after the header are not kept.
	Comments map[string][]string
	Trailer  []string
	// Version is the hex SHA-256 of the bytes the set was read from (or
	// last written to). Empty for sets built in memory.
	Version string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{Hosts: make(map[string]*Host)}
}

// Load reads and decodes path.
func Load(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path, Err: err}
		}
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return ParseBytes(b)
}

// Parse reads a whole HOST_CONFIG from r.
func Parse(r io.Reader) (*Set, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Op: "read", Path: "-", Err: err}
	}
	return ParseBytes(b)
}

// ParseBytes decodes HOST_CONFIG content. It fails on the first bad line;
// a partially decoded set is never returned.
func ParseBytes(b []byte) (*Set, error) {
	text, err := fsops.DecodeLatin1(b)
	if err != nil {
		return nil, &FormatError{Column: -1, Err: err}
	}
	s := NewSet()
	sum := sha256.Sum256(b)
	s.Version = hex.EncodeToString(sum[:])

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	inHeader := true
	var pending []string
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			if inHeader {
				s.Header = append(s.Header, line)
			} else if trimmed != "" {
				pending = append(pending, line)
			}
			continue
		}
		inHeader = false
		h, err := DecodeLine(trimmed)
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Line = lineNo
				return nil, fe
			}
			return nil, &FormatError{Line: lineNo, Column: -1, Err: err}
		}
		if _, dup := s.Hosts[h.Alias]; dup {
			return nil, &FormatError{Line: lineNo, Alias: h.Alias, Column: ColAlias, Err: fmt.Errorf("duplicate alias")}
		}
		s.Order = append(s.Order, h.Alias)
		s.Hosts[h.Alias] = h
		if len(pending) > 0 {
			if s.Comments == nil {
				s.Comments = make(map[string][]string)
			}
			s.Comments[h.Alias] = pending
			pending = nil
		}
	}
	s.Trailer = pending
	if err := sc.Err(); err != nil {
		return nil, &FormatError{Line: lineNo + 1, Column: -1, Err: err}
	}
	// Blank lines between the header and the first host belong to the
	// header; trailing blank lines of a host-less file are dropped.
	if inHeader {
		for len(s.Header) > 0 && strings.TrimSpace(s.Header[len(s.Header)-1]) == "" {
			s.Header = s.Header[:len(s.Header)-1]
		}
	}
	return s, nil
}

// Host returns the record for alias.
func (s *Set) Host(alias string) (*Host, bool) {
	h, ok := s.Hosts[alias]
	return h, ok
}

// Patch merges fields into the record for alias, creating a record with
// table defaults (appended to the order) when alias is new. Other aliases
// are not touched and nothing changes on error.
func (s *Set) Patch(alias string, fields map[string]string) error {
	h, ok := s.Hosts[alias]
	if !ok {
		h = NewHost(alias)
	}
	return s.commit(alias, h, !ok, fields)
}

// Reseed replaces the record for alias with table defaults overlaid by
// fields, which is how the edit form submits a host. The daemon owned
// host_status column survives unless fields sets it.
func (s *Set) Reseed(alias string, fields map[string]string) error {
	old, exists := s.Hosts[alias]
	h := NewHost(alias)
	if exists {
		h.HostStatus = old.HostStatus
	}
	return s.commit(alias, h, !exists, fields)
}

func (s *Set) commit(alias string, base *Host, isNew bool, fields map[string]string) error {
	if v, ok := fields["alias"]; ok && v != alias {
		return &ValidationError{Alias: alias, Field: "alias", Msg: fmt.Sprintf("does not match target %q", v)}
	}
	next := *base
	if err := next.apply(fields, isNew); err != nil {
		return err
	}
	if s.Hosts == nil {
		s.Hosts = make(map[string]*Host)
	}
	s.Hosts[alias] = &next
	if isNew {
		s.Order = append(s.Order, alias)
	}
	return nil
}

// Reorder replaces the host order. Every alias must exist and appear once;
// otherwise a *ValidationError lists the offenders and s is unchanged.
// Hosts left out of order are removed from the set.
func (s *Set) Reorder(order []string) error {
	var unknown, dups []string
	seen := make(map[string]bool, len(order))
	for _, a := range order {
		if _, ok := s.Hosts[a]; !ok {
			unknown = append(unknown, a)
			continue
		}
		if seen[a] {
			dups = append(dups, a)
		}
		seen[a] = true
	}
	if len(unknown) > 0 {
		return &ValidationError{Msg: "unknown aliases", Aliases: unknown}
	}
	if len(dups) > 0 {
		return &ValidationError{Msg: "duplicate aliases", Aliases: dups}
	}
	for a := range s.Hosts {
		if !seen[a] {
			delete(s.Hosts, a)
			delete(s.Comments, a)
		}
	}
	s.Order = append([]string(nil), order...)
	return nil
}

// Remove drops alias from the set. It reports whether alias existed.
func (s *Set) Remove(alias string) bool {
	if _, ok := s.Hosts[alias]; !ok {
		return false
	}
	delete(s.Hosts, alias)
	delete(s.Comments, alias)
	for i, a := range s.Order {
		if a == alias {
			s.Order = append(s.Order[:i:i], s.Order[i+1:]...)
			break
		}
	}
	return true
}

// Encode writes the header and one line per alias in order, each preceded
// by its comments, then the trailer, Latin-1 encoded. Output already written stays written when a later line fails.
func (s *Set) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, l := range s.Header {
		if err := writeLatin1(bw, l); err != nil {
			return &FormatError{Column: -1, Err: err}
		}
	}
	for _, a := range s.Order {
		h, ok := s.Hosts[a]
		if !ok {
			return &ValidationError{Alias: a, Msg: "listed in order but has no record"}
		}
		for _, l := range s.Comments[a] {
			if err := writeLatin1(bw, l); err != nil {
				return &FormatError{Alias: a, Column: -1, Err: err}
			}
		}
		if err := writeLatin1(bw, h.EncodeLine()); err != nil {
			return &ValidationError{Alias: a, Msg: err.Error()}
		}
	}
	for _, l := range s.Trailer {
		if err := writeLatin1(bw, l); err != nil {
			return &FormatError{Column: -1, Err: err}
		}
	}
	return bw.Flush()
}

func writeLatin1(w *bufio.Writer, line string) error {
	b, err := fsops.EncodeLatin1(line)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

// Bytes returns the encoded file content.
func (s *Set) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes s to path through a temp file and rename. On error path is
// untouched. On success s.Version is the new content hash.
func Save(s *Set, path string) error {
	hash := sha256.New()
	var encErr error
	err := fsops.WriteAtomic(path, fsops.FileMode(path, 0o644), TempPattern, func(w io.Writer) error {
		encErr = s.Encode(io.MultiWriter(w, hash))
		return encErr
	})
	if err != nil {
		if encErr != nil {
			return encErr
		}
		return &IOError{Op: "save", Path: path, Err: err}
	}
	s.Version = hex.EncodeToString(hash.Sum(nil))
	return nil
}

// TempPattern names the temp files Save creates next to HOST_CONFIG.
const TempPattern = ".HOST_CONFIG-*"

// HintFunc returns a presentation hint for alias, or "".
type HintFunc func(alias string) string

// View is the JSON transport form of a set.
type View struct {
	Order   []string                  `json:"order"`
	Data    map[string]map[string]any `json:"data"`
	Version string                    `json:"version,omitempty"`
}

// View renders the set for transport. filter selects the records included
// in Data: nil for all, "" for the first host only, or one alias. Order
// always lists every alias. Each record carries a "protocol-class" hint.
func (s *Set) View(filter *string, hint HintFunc) View {
	v := View{
		Order:   append([]string{}, s.Order...),
		Data:    make(map[string]map[string]any),
		Version: s.Version,
	}
	for i, a := range s.Order {
		if filter != nil {
			if *filter == "" && i > 0 {
				break
			}
			if *filter != "" && *filter != a {
				continue
			}
		}
		h, ok := s.Hosts[a]
		if !ok {
			continue
		}
		vals := h.Values()
		cls := ""
		if hint != nil {
			cls = hint(a)
		}
		vals["protocol-class"] = cls
		v.Data[a] = vals
	}
	return v
}
