package hostconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every typed error below matches exactly one.
var (
	ErrNotFound   = errors.New("host config not found")
	ErrFormat     = errors.New("malformed host config")
	ErrValidation = errors.New("invalid host config data")
	ErrIO         = errors.New("host config i/o failure")
	ErrConflict   = errors.New("host config changed concurrently")
)

// NotFoundError reports a missing HOST_CONFIG file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("host config %s not found", e.Path)
}

func (e *NotFoundError) Unwrap() error        { return e.Err }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// FormatError reports a line that cannot be decoded.
// Line is 1-based and zero when the error is not tied to a file position.
// Column is -1 when the whole line is at fault.
type FormatError struct {
	Line   int
	Alias  string
	Column int
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("HOST_CONFIG")
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Alias != "" {
		fmt.Fprintf(&b, " (alias %s)", e.Alias)
	}
	if e.Column >= 0 {
		fmt.Fprintf(&b, " column %d", e.Column)
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString("malformed line")
	}
	return b.String()
}

func (e *FormatError) Unwrap() error        { return e.Err }
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ValidationError reports rejected input. Nothing has been modified when
// it is returned.
type ValidationError struct {
	Alias   string
	Field   string
	Aliases []string // unknown or duplicate aliases of a reorder
	Msg     string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid")
	if e.Alias != "" {
		fmt.Fprintf(&b, " host %s", e.Alias)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s", e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Aliases) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Aliases, ", "))
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IOError reports a failed read, write or rename. For saves the original
// file is untouched.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("host config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error        { return e.Err }
func (e *IOError) Is(target error) bool { return target == ErrIO }

// ConflictError reports that the file changed since the caller read it.
type ConflictError struct {
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("host config version %s does not match current %s", short(e.Expected), short(e.Actual))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func short(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

func formatErr(col int, format string, args ...any) *FormatError {
	return &FormatError{Column: col, Err: fmt.Errorf(format, args...)}
}
