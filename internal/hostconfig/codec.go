package hostconfig

import (
	"strconv"
	"strings"
)

// DecodeLine decodes one HOST_CONFIG line. Missing trailing columns take
// their defaults and a number column that is not an integer is kept as
// text. An empty alias, a line shorter than the last referenced column, a
// non-decimal bitmask or a malformed host switch token is a *FormatError
// with Column set (Line is left to the caller).
func DecodeLine(line string) (*Host, error) {
	line = strings.TrimSpace(line)
	tok := strings.Split(line, ":")
	if len(tok) < NumColumns-1 {
		return nil, &FormatError{Alias: tok[0], Column: -1, Err: errTokens(len(tok))}
	}
	if len(tok) > NumColumns {
		return nil, &FormatError{Alias: tok[0], Column: -1, Err: errTokens(len(tok))}
	}
	if strings.TrimSpace(tok[ColAlias]) == "" {
		return nil, formatErr(ColAlias, "empty alias")
	}
	at := func(col int) string {
		if col < len(tok) {
			return strings.TrimSpace(tok[col])
		}
		return ""
	}

	h := &Host{}
	var seen [NumColumns]bool
	for _, f := range Fields {
		switch f.Kind {
		case KindText:
			*h.text(f.Column) = at(f.Column)
		case KindNumber:
			v := at(f.Column)
			if v == "" {
				v = f.Default
			}
			h.setNumber(f.Column, v)
		case KindMask, KindFlag, KindOption:
			if seen[f.Column] {
				continue
			}
			seen[f.Column] = true
			v, err := parseMask(at(f.Column))
			if err != nil {
				return nil, &FormatError{Alias: h.Alias, Column: f.Column, Err: err}
			}
			*h.mask(f.Column) = v
		case KindSwitch:
			if seen[f.Column] {
				continue
			}
			seen[f.Column] = true
			s, err := DecodeHostSwitch(at(f.Column))
			if err != nil {
				return nil, &FormatError{Alias: h.Alias, Column: f.Column, Err: err}
			}
			h.Switch = s
		}
	}
	return h, nil
}

// EncodeLine renders h as exactly NumColumns ':' separated columns.
func (h *Host) EncodeLine() string {
	cols := make([]string, NumColumns)
	for _, f := range Fields {
		switch f.Kind {
		case KindText:
			cols[f.Column] = *h.text(f.Column)
		case KindNumber:
			cols[f.Column] = h.numberToken(f.Column)
		case KindMask, KindFlag, KindOption:
			cols[f.Column] = formatMask(*h.mask(f.Column))
		case KindSwitch:
			cols[f.Column] = EncodeHostSwitch(h.Switch)
		}
	}
	return strings.Join(cols, ":")
}

type tokenCountError int

func (n tokenCountError) Error() string {
	return "want " + strconv.Itoa(NumColumns) + " columns, got " + strconv.Itoa(int(n))
}

func errTokens(n int) error { return tokenCountError(n) }
