package hostconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxAliasLength is the longest alias the AFD daemon accepts.
const MaxAliasLength = 8

// Host is one HOST_CONFIG record.
type Host struct {
	Alias     string
	RealHost1 string
	RealHost2 string
	Switch    HostSwitch
	ProxyName string

	MaxParallelTransfer int
	MaxErrors           int
	RetryInterval       int
	TransferBlockSize   int
	SuccessfulRetries   int
	FileSizeOffset      int
	TransferTimeout     int
	NoBurst             int

	// Bitmask columns keep bits that no field names.
	HostStatus    uint32
	ProtocolFlags uint32

	TransferRateLimit   int
	TTL                 int
	SocketSendBuffer    int
	SocketReceiveBuffer int
	DupCheckTimeout     int

	DupCheckFlags uint32

	KeepConnected int
	WarnTime      int

	// raw keeps the verbatim token of a number column that does not hold
	// an integer ("4 KB"). A non-empty entry overrides the int field.
	raw [NumColumns]string
}

// NewHost returns a record for alias with every field at its table default.
func NewHost(alias string) *Host {
	h := &Host{}
	for _, f := range Fields {
		switch f.Kind {
		case KindNumber:
			n, _ := strconv.Atoi(f.Default)
			*h.number(f.Column) = n
		case KindFlag:
			if on, _ := parseFlag(f.Default); on {
				*h.mask(f.Column) |= 1 << f.Bit
			}
		}
	}
	h.Alias = alias
	return h
}

func (h *Host) text(col int) *string {
	switch col {
	case ColAlias:
		return &h.Alias
	case ColRealHost1:
		return &h.RealHost1
	case ColRealHost2:
		return &h.RealHost2
	case ColProxyName:
		return &h.ProxyName
	}
	panic(fmt.Sprintf("hostconfig: column %d is not a text column", col))
}

func (h *Host) number(col int) *int {
	switch col {
	case ColMaxParallel:
		return &h.MaxParallelTransfer
	case ColMaxErrors:
		return &h.MaxErrors
	case ColRetryInterval:
		return &h.RetryInterval
	case ColTransferBlockSize:
		return &h.TransferBlockSize
	case ColSuccessfulRetries:
		return &h.SuccessfulRetries
	case ColFileSizeOffset:
		return &h.FileSizeOffset
	case ColTransferTimeout:
		return &h.TransferTimeout
	case ColNoBurst:
		return &h.NoBurst
	case ColTransferRateLimit:
		return &h.TransferRateLimit
	case ColTTL:
		return &h.TTL
	case ColSocketSendBuffer:
		return &h.SocketSendBuffer
	case ColSocketRecvBuffer:
		return &h.SocketReceiveBuffer
	case ColDupCheckTimeout:
		return &h.DupCheckTimeout
	case ColKeepConnected:
		return &h.KeepConnected
	case ColWarnTime:
		return &h.WarnTime
	}
	panic(fmt.Sprintf("hostconfig: column %d is not a number column", col))
}

// setNumber stores tok in a number column, verbatim when it is not an
// integer.
func (h *Host) setNumber(col int, tok string) {
	if n, err := strconv.Atoi(tok); err == nil {
		*h.number(col) = n
		h.raw[col] = ""
		return
	}
	*h.number(col) = 0
	h.raw[col] = tok
}

// numberToken is the text written for a number column.
func (h *Host) numberToken(col int) string {
	if r := h.raw[col]; r != "" {
		return r
	}
	return strconv.Itoa(*h.number(col))
}

func (h *Host) mask(col int) *uint32 {
	switch col {
	case ColHostStatus:
		return &h.HostStatus
	case ColProtocolFlags:
		return &h.ProtocolFlags
	case ColDupCheckFlags:
		return &h.DupCheckFlags
	}
	panic(fmt.Sprintf("hostconfig: column %d is not a bitmask column", col))
}

// Values renders h as a field map: text for text fields, int for numbers
// (the verbatim token for a number column that holds text),
// "yes"/"no" for flags, the option or "no" for radio groups, and the four
// host_switch_* parts.
func (h *Host) Values() map[string]any {
	out := make(map[string]any, len(fieldIndex))
	decoded := make(map[int]map[string]string, 3)
	for _, f := range Fields {
		switch f.Kind {
		case KindText:
			out[f.Name] = *h.text(f.Column)
		case KindNumber:
			if r := h.raw[f.Column]; r != "" {
				out[f.Name] = r
			} else {
				out[f.Name] = *h.number(f.Column)
			}
		case KindMask:
			out[f.Name] = *h.mask(f.Column)
		case KindFlag, KindOption:
			m, ok := decoded[f.Column]
			if !ok {
				m = DecodeBitmask(*h.mask(f.Column), f.Column)
				decoded[f.Column] = m
			}
			out[f.Name] = m[f.Name]
		case KindSwitch:
			out[f.Name] = h.switchPart(f.Part)
		}
	}
	return out
}

func (h *Host) switchPart(p SwitchPart) string {
	switch p {
	case SwitchEnable:
		return yesNo(h.Switch.Enabled)
	case SwitchAuto:
		return yesNo(h.Switch.Enabled && h.Switch.Auto)
	case SwitchChar1:
		if h.Switch.Enabled {
			return string(h.Switch.Char1)
		}
	case SwitchChar2:
		if h.Switch.Enabled {
			return string(h.Switch.Char2)
		}
	}
	return ""
}

// Get returns the field map value of one field.
func (h *Host) Get(name string) (any, bool) {
	if _, ok := fieldIndex[name]; !ok {
		return nil, false
	}
	v, ok := h.Values()[name]
	return v, ok
}

// Set assigns one field from its field map representation. An empty value
// resets numbers to their default; a number field given text that is not an
// integer keeps it verbatim, as decoding does.
func (h *Host) Set(name, value string) error {
	fields, ok := Lookup(name)
	if !ok {
		return &ValidationError{Alias: h.Alias, Field: name, Msg: "unknown field"}
	}
	f := fields[0]
	bad := func(format string, args ...any) error {
		return &ValidationError{Alias: h.Alias, Field: name, Msg: fmt.Sprintf(format, args...)}
	}
	switch f.Kind {
	case KindText:
		if err := validText(value); err != nil {
			return bad("%v", err)
		}
		*h.text(f.Column) = value
	case KindNumber:
		v := strings.TrimSpace(value)
		if v == "" {
			v = f.Default
		}
		if err := validText(v); err != nil {
			return bad("%v", err)
		}
		h.setNumber(f.Column, v)
	case KindMask:
		v, err := parseMask(value)
		if err != nil {
			return bad("%v", err)
		}
		*h.mask(f.Column) = v
	case KindFlag:
		on, err := parseFlag(value)
		if err != nil {
			return bad("%v", err)
		}
		m := h.mask(f.Column)
		if on {
			*m |= 1 << f.Bit
		} else {
			*m &^= 1 << f.Bit
		}
	case KindOption:
		m := h.mask(f.Column)
		v := strings.TrimSpace(value)
		if v == "" || v == "no" {
			*m &^= groupMask(name)
			return nil
		}
		for _, o := range fields {
			if o.Option == v {
				*m = *m&^groupMask(name) | 1<<o.Bit
				return nil
			}
		}
		opts := make([]string, 0, len(fields))
		for _, o := range fields {
			opts = append(opts, o.Option)
		}
		return bad("%q is not one of no, %s", value, strings.Join(opts, ", "))
	case KindSwitch:
		return h.setSwitchPart(f.Part, value, bad)
	}
	return nil
}

func (h *Host) setSwitchPart(p SwitchPart, value string, bad func(string, ...any) error) error {
	switch p {
	case SwitchEnable, SwitchAuto:
		on, err := parseFlag(value)
		if err != nil {
			return bad("%v", err)
		}
		if p == SwitchEnable {
			h.Switch.Enabled = on
		} else {
			h.Switch.Auto = on
		}
	case SwitchChar1, SwitchChar2:
		var c rune
		switch utf8.RuneCountInString(value) {
		case 0:
		case 1:
			c, _ = utf8.DecodeRuneInString(value)
		default:
			return bad("want a single character, got %q", value)
		}
		if p == SwitchChar1 {
			h.Switch.Char1 = c
		} else {
			h.Switch.Char2 = c
		}
	}
	return nil
}

// Apply sets several fields at once. Whole bitmask columns are assigned
// before single bits so that "host_status" never clobbers a flag from the
// same call. h is left unchanged on error.
func (h *Host) Apply(fields map[string]string) error {
	return h.apply(fields, true)
}

// apply is Apply; checkAlias false skips the alias length limit, so a
// record loaded with a longer alias can still be edited.
func (h *Host) apply(fields map[string]string, checkAlias bool) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		mi, mj := isMaskField(names[i]), isMaskField(names[j])
		if mi != mj {
			return mi
		}
		return names[i] < names[j]
	})
	next := *h
	for _, name := range names {
		if err := next.Set(name, fields[name]); err != nil {
			return err
		}
	}
	if err := next.validate(checkAlias); err != nil {
		return err
	}
	*h = next
	return nil
}

func isMaskField(name string) bool {
	idx := fieldIndex[name]
	return len(idx) > 0 && Fields[idx[0]].Kind == KindMask
}

// Validate checks that h can be written as a HOST_CONFIG line whose alias
// the AFD daemon accepts.
func (h *Host) Validate() error {
	return h.validate(true)
}

func (h *Host) validate(checkAlias bool) error {
	if h.Alias == "" {
		return &ValidationError{Field: "alias", Msg: "alias is required"}
	}
	if n := utf8.RuneCountInString(h.Alias); checkAlias && n > MaxAliasLength {
		return &ValidationError{Alias: h.Alias, Field: "alias", Msg: fmt.Sprintf("longer than %d characters", MaxAliasLength)}
	}
	for _, f := range Fields {
		if f.Kind != KindText {
			continue
		}
		if err := validText(*h.text(f.Column)); err != nil {
			return &ValidationError{Alias: h.Alias, Field: f.Name, Msg: err.Error()}
		}
	}
	if err := h.Switch.valid(); err != nil {
		return &ValidationError{Alias: h.Alias, Field: "host_switch_char1", Msg: err.Error()}
	}
	return nil
}

func validText(s string) error {
	for _, r := range s {
		switch {
		case r == ':':
			return fmt.Errorf("':' is the column separator")
		case r == '\n' || r == '\r':
			return fmt.Errorf("line breaks are not allowed")
		case r > 0xff:
			return fmt.Errorf("%q is not Latin-1", r)
		}
	}
	return nil
}
