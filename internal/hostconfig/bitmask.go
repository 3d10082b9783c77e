package hostconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// DecodeBitmask returns the flag and radio fields stored in column for the
// value v. Flags read "yes" or "no", radio groups read the option whose bit
// is set or "no". If several options of one group are set the lowest bit
// wins.
func DecodeBitmask(v uint32, column int) map[string]string {
	out := make(map[string]string)
	for _, f := range Fields {
		if f.Column != column {
			continue
		}
		switch f.Kind {
		case KindFlag:
			out[f.Name] = yesNo(v&(1<<f.Bit) != 0)
		case KindOption:
			if cur, ok := out[f.Name]; ok && cur != "no" {
				continue
			}
			if v&(1<<f.Bit) != 0 {
				out[f.Name] = f.Option
			} else {
				out[f.Name] = "no"
			}
		}
	}
	return out
}

// EncodeBitmask ORs together the bits that values selects in column.
// Missing or unrecognised values contribute nothing.
func EncodeBitmask(values map[string]string, column int) uint32 {
	var v uint32
	for _, f := range Fields {
		if f.Column != column {
			continue
		}
		val, ok := values[f.Name]
		if !ok {
			continue
		}
		switch f.Kind {
		case KindFlag:
			if on, err := parseFlag(val); err == nil && on {
				v |= 1 << f.Bit
			}
		case KindOption:
			if val == f.Option {
				v |= 1 << f.Bit
			}
		}
	}
	return v
}

// parseMask reads a bitmask column. Older tools wrote bit 31 as a negative
// int32, so those are accepted and reinterpreted.
func parseMask(tok string) (uint32, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, nil
	}
	if u, err := strconv.ParseUint(tok, 10, 32); err == nil {
		return uint32(u), nil
	}
	i, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bitmask %q is not a 32-bit decimal", tok)
	}
	return uint32(int32(i)), nil
}

func formatMask(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "on", "1":
		return true, nil
	case "no", "false", "off", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("%q is not yes or no", s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
