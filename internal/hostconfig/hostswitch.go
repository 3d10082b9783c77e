package hostconfig

import "fmt"

// HostSwitch is the composite host toggle column. A token of "{12}" means
// automatic switching between the suffixes '1' and '2', "[12]" means the
// operator switches by hand, and an empty token disables switching.
type HostSwitch struct {
	Enabled bool
	Auto    bool
	Char1   rune
	Char2   rune
}

// DecodeHostSwitch parses a host switch token.
func DecodeHostSwitch(tok string) (HostSwitch, error) {
	if tok == "" {
		return HostSwitch{}, nil
	}
	r := []rune(tok)
	if len(r) != 4 {
		return HostSwitch{}, fmt.Errorf("host switch %q: want 4 characters, got %d", tok, len(r))
	}
	var auto bool
	var closing rune
	switch r[0] {
	case '{':
		auto, closing = true, '}'
	case '[':
		auto, closing = false, ']'
	default:
		return HostSwitch{}, fmt.Errorf("host switch %q: must start with '{' or '['", tok)
	}
	if r[3] != closing {
		return HostSwitch{}, fmt.Errorf("host switch %q: want closing %q", tok, closing)
	}
	return HostSwitch{Enabled: true, Auto: auto, Char1: r[1], Char2: r[2]}, nil
}

// EncodeHostSwitch is the inverse of DecodeHostSwitch.
func EncodeHostSwitch(s HostSwitch) string {
	if !s.Enabled {
		return ""
	}
	if s.Auto {
		return "{" + string(s.Char1) + string(s.Char2) + "}"
	}
	return "[" + string(s.Char1) + string(s.Char2) + "]"
}

func (s HostSwitch) valid() error {
	if !s.Enabled {
		return nil
	}
	for _, c := range []rune{s.Char1, s.Char2} {
		switch c {
		case 0:
			return fmt.Errorf("switch characters are required when switching is enabled")
		case ':', '\n', '\r':
			return fmt.Errorf("switch character %q not allowed", c)
		}
		if c > 0xff {
			return fmt.Errorf("switch character %q is not Latin-1", c)
		}
	}
	return nil
}
