package hostconfig

// NumColumns is the number of ':' separated columns of one HOST_CONFIG line.
const NumColumns = 23

// Column indexes of a HOST_CONFIG line.
const (
	ColAlias             = 0  // AH
	ColRealHost1         = 1  // HN1
	ColRealHost2         = 2  // HN2
	ColHostSwitch        = 3  // HT
	ColProxyName         = 4  // PXY
	ColMaxParallel       = 5  // AT
	ColMaxErrors         = 6  // ME
	ColRetryInterval     = 7  // RI
	ColTransferBlockSize = 8  // TB
	ColSuccessfulRetries = 9  // SR
	ColFileSizeOffset    = 10 // FSO
	ColTransferTimeout   = 11 // TT
	ColNoBurst           = 12 // NB
	ColHostStatus        = 13 // HS
	ColProtocolFlags     = 14 // SF
	ColTransferRateLimit = 15 // TRL
	ColTTL               = 16 // TTL
	ColSocketSendBuffer  = 17 // SSB
	ColSocketRecvBuffer  = 18 // SRB
	ColDupCheckTimeout   = 19 // DT
	ColDupCheckFlags     = 20 // DF
	ColKeepConnected     = 21 // KC
	ColWarnTime          = 22 // WT
)

// Kind selects how a Field is stored in its column.
type Kind int

const (
	// KindText is a verbatim string column.
	KindText Kind = iota
	// KindNumber is a decimal integer column.
	KindNumber
	// KindMask is a whole bitmask column exposed as one unsigned number.
	KindMask
	// KindFlag is one bit of a bitmask column.
	KindFlag
	// KindOption is one bit of a radio group: fields sharing a Name and
	// Column are mutually exclusive options.
	KindOption
	// KindSwitch is one part of the composite host switch column.
	KindSwitch
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindMask:
		return "mask"
	case KindFlag:
		return "flag"
	case KindOption:
		return "option"
	case KindSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// SwitchPart names one of the four logical fields of the host switch column.
type SwitchPart int

const (
	SwitchEnable SwitchPart = iota + 1
	SwitchChar1
	SwitchChar2
	SwitchAuto
)

// Field describes one logical field of a HOST_CONFIG line.
type Field struct {
	Name    string
	Kind    Kind
	Column  int
	Bit     uint       // KindFlag, KindOption
	Option  string     // KindOption
	Part    SwitchPart // KindSwitch
	Default string
}

func text(name string, col int) Field {
	return Field{Name: name, Kind: KindText, Column: col}
}

func number(name string, col int, def string) Field {
	return Field{Name: name, Kind: KindNumber, Column: col, Default: def}
}

func mask(name string, col int) Field {
	return Field{Name: name, Kind: KindMask, Column: col, Default: "0"}
}

func flag(name string, col int, bit uint) Field {
	return Field{Name: name, Kind: KindFlag, Column: col, Bit: bit, Default: "no"}
}

func option(name string, col int, bit uint, opt string) Field {
	return Field{Name: name, Kind: KindOption, Column: col, Bit: bit, Option: opt, Default: "no"}
}

func part(name string, p SwitchPart, def string) Field {
	return Field{Name: name, Kind: KindSwitch, Column: ColHostSwitch, Part: p, Default: def}
}

// Fields is the HOST_CONFIG field table in file order. Bit positions are
// those of the AFD daemon and must never be renumbered.
var Fields = []Field{
	text("alias", ColAlias),
	text("host_name_real1", ColRealHost1),
	text("host_name_real2", ColRealHost2),
	part("host_switch_enable", SwitchEnable, "no"),
	part("host_switch_char1", SwitchChar1, ""),
	part("host_switch_char2", SwitchChar2, ""),
	// yes = {XY}, no = [XY]
	part("host_switch_auto", SwitchAuto, "no"),
	text("proxy_name", ColProxyName),
	number("max_parallel_transfer", ColMaxParallel, "3"),
	number("max_errors", ColMaxErrors, "10"),
	number("retry_interval", ColRetryInterval, "120"),
	number("transfer_block_size", ColTransferBlockSize, "4096"),
	number("successful_retries", ColSuccessfulRetries, "0"),
	// -2 disables append handling.
	number("filesize_offset_for_append", ColFileSizeOffset, "-2"),
	number("transfer_timeout", ColTransferTimeout, "60"),
	number("no_burst", ColNoBurst, "0"),

	// The status column is maintained by the daemon; the edit page only
	// touches two of its bits.
	mask("host_status", ColHostStatus),
	flag("ignore_error_warning", ColHostStatus, 4),
	flag("do_not_delete", ColHostStatus, 15),

	flag("ftp_mode_passive", ColProtocolFlags, 0),
	flag("ftp_idle_time", ColProtocolFlags, 1),
	flag("ftp_keep_alive", ColProtocolFlags, 2),
	flag("ftp_fast_rename", ColProtocolFlags, 3),
	flag("ftp_fast_cd", ColProtocolFlags, 4),
	flag("ftp_no_type_i", ColProtocolFlags, 5),
	flag("ftp_mode_epsv", ColProtocolFlags, 6),
	flag("disable_burst", ColProtocolFlags, 7),
	flag("ftp_allow_redirect", ColProtocolFlags, 8),
	flag("use_local_scheme", ColProtocolFlags, 9),
	flag("tcp_keep_alive", ColProtocolFlags, 10),
	flag("sequence_locking", ColProtocolFlags, 11),
	flag("enable_compress", ColProtocolFlags, 12),
	flag("keep_timestamp", ColProtocolFlags, 13),
	flag("sort_names", ColProtocolFlags, 14),
	flag("no_ageing_jobs", ColProtocolFlags, 15),
	flag("check_local_remote_match_size", ColProtocolFlags, 16),
	flag("is_timeout_transfer", ColProtocolFlags, 17),
	option("keep_connected_direction", ColProtocolFlags, 18, "send"),
	option("keep_connected_direction", ColProtocolFlags, 19, "fetch"),
	flag("ftps_clear_ctrlcon", ColProtocolFlags, 20),
	flag("ftp_use_list", ColProtocolFlags, 21),
	flag("tls_strict_verification", ColProtocolFlags, 22),
	flag("ftp_disable_mlst", ColProtocolFlags, 23),
	flag("keep_connected_disconnect", ColProtocolFlags, 24),

	number("transfer_rate_limit", ColTransferRateLimit, "0"),
	number("time_to_live", ColTTL, "0"),
	number("socket_send_buffer", ColSocketSendBuffer, "0"),
	number("socket_receive_buffer", ColSocketRecvBuffer, "0"),
	number("dupcheck_timeout", ColDupCheckTimeout, "0"),

	option("dupcheck_type", ColDupCheckFlags, 0, "name"),
	option("dupcheck_type", ColDupCheckFlags, 1, "content"),
	option("dupcheck_type", ColDupCheckFlags, 2, "name-content"),
	option("dupcheck_type", ColDupCheckFlags, 3, "name-no-suffix"),
	option("dupcheck_type", ColDupCheckFlags, 4, "name-size"),
	option("dupcheck_crc", ColDupCheckFlags, 15, "crc32"),
	option("dupcheck_crc", ColDupCheckFlags, 16, "crc32c"),
	{Name: "dupcheck_delete", Kind: KindFlag, Column: ColDupCheckFlags, Bit: 23, Default: "yes"},
	flag("dupcheck_store", ColDupCheckFlags, 24),
	flag("dupcheck_warn", ColDupCheckFlags, 25),
	flag("dupcheck_timeout_fixed", ColDupCheckFlags, 30),
	option("dupcheck_reference", ColDupCheckFlags, 31, "recipient"),

	number("keep_connected", ColKeepConnected, "0"),
	number("warn_time", ColWarnTime, "0"),
}

// fieldIndex maps a field name to its positions in Fields. Radio groups
// have one position per option.
var fieldIndex = func() map[string][]int {
	m := make(map[string][]int, len(Fields))
	for i, f := range Fields {
		m[f.Name] = append(m[f.Name], i)
	}
	return m
}()

// Lookup returns the descriptors for name, one per option for radio groups.
func Lookup(name string) ([]Field, bool) {
	idx, ok := fieldIndex[name]
	if !ok {
		return nil, false
	}
	out := make([]Field, 0, len(idx))
	for _, i := range idx {
		out = append(out, Fields[i])
	}
	return out, true
}

// Names returns the distinct field names in table order.
func Names() []string {
	seen := make(map[string]bool, len(Fields))
	out := make([]string, 0, len(Fields))
	for _, f := range Fields {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f.Name)
	}
	return out
}

// groupMask returns the bits of all options of the radio group name.
func groupMask(name string) uint32 {
	var m uint32
	for _, i := range fieldIndex[name] {
		if Fields[i].Kind == KindOption {
			m |= 1 << Fields[i].Bit
		}
	}
	return m
}
