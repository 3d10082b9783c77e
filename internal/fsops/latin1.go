package fsops

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/text/encoding/charmap"
)

// AFD keeps its etc files in ISO 8859-1. These helpers convert between the
// on-disk bytes and UTF-8 strings.

// DecodeLatin1 converts ISO 8859-1 bytes to a UTF-8 string. Every byte is
// valid Latin-1, so this never fails in practice.
func DecodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ErrNotLatin1 is returned for text with characters above U+00FF.
var ErrNotLatin1 = errors.New("text is not representable in ISO 8859-1")

// EncodeLatin1 converts s to ISO 8859-1.
func EncodeLatin1(s string) ([]byte, error) {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotLatin1, err)
	}
	return b, nil
}

// ReadLatin1File reads path and returns its content as UTF-8.
func ReadLatin1File(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DecodeLatin1(b)
}

// WriteLatin1FileAtomic encodes s as ISO 8859-1 and replaces path atomically,
// keeping the permissions of an existing file.
func WriteLatin1FileAtomic(path string, s string) error {
	b, err := EncodeLatin1(s)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, b, FileMode(path, 0o644))
}
