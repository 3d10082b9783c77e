package hostconfig

import (
	"errors"
	"strings"
	"testing"
)

const idefixLine = "idefix:192.168.1.24:192.168.1.25:[12]::5:10:300:4096:10:-2:20:0:0:0:0:0:0:0:0:0:0:0"

func TestDecodeLineExample(t *testing.T) {
	h, err := DecodeLine(idefixLine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Alias != "idefix" || h.RealHost1 != "192.168.1.24" || h.RealHost2 != "192.168.1.25" {
		t.Fatalf("hosts: got %q %q %q", h.Alias, h.RealHost1, h.RealHost2)
	}
	want := HostSwitch{Enabled: true, Auto: false, Char1: '1', Char2: '2'}
	if h.Switch != want {
		t.Fatalf("switch: got %+v want %+v", h.Switch, want)
	}
	if h.MaxParallelTransfer != 5 || h.MaxErrors != 10 || h.RetryInterval != 300 {
		t.Fatalf("scalars: got %d %d %d", h.MaxParallelTransfer, h.MaxErrors, h.RetryInterval)
	}
	if h.FileSizeOffset != -2 || h.TransferBlockSize != 4096 || h.SuccessfulRetries != 10 || h.TransferTimeout != 20 {
		t.Fatalf("scalars: got fso=%d tb=%d sr=%d tt=%d", h.FileSizeOffset, h.TransferBlockSize, h.SuccessfulRetries, h.TransferTimeout)
	}

	line := h.EncodeLine()
	if line != idefixLine {
		t.Fatalf("encode:\n got %s\nwant %s", line, idefixLine)
	}
	h2, err := DecodeLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *h2 != *h {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *h2, *h)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	lines := []string{
		idefixLine,
		"asterix:ftp.example.org::{ab}:proxy1:2:5:60:8192:0:-2:30:0:16:8388609:0:0:0:0:3600:8388624:0:0",
		"obelix:10.0.0.1::::3:10:120:4096:0:-2:60:0:32768:4294967295:100:64:65536:65536:0:2147483648:30:600",
		"minimal:host:::::::::::::::::::::",
	}
	for _, line := range lines {
		h, err := DecodeLine(line)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", line, err)
		}
		h2, err := DecodeLine(h.EncodeLine())
		if err != nil {
			t.Fatalf("%s: re-decode: %v", line, err)
		}
		if *h2 != *h {
			t.Fatalf("%s: round trip mismatch:\n got %+v\nwant %+v", line, *h2, *h)
		}
		if n := strings.Count(h.EncodeLine(), ":"); n != NumColumns-1 {
			t.Fatalf("%s: encoded %d separators", line, n)
		}
	}
}

func TestDecodeEmptyColumnsTakeDefaults(t *testing.T) {
	h, err := DecodeLine("minimal:host:::::::::::::::::::::")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := NewHost("minimal")
	def.RealHost1 = "host"
	// Empty bitmask columns read as zero, not as the flag defaults.
	def.DupCheckFlags = 0
	if *h != *def {
		t.Fatalf("got %+v\nwant %+v", *h, *def)
	}
	if h.EncodeLine() != "minimal:host::::3:10:120:4096:0:-2:60:0:0:0:0:0:0:0:0:0:0:0" {
		t.Fatalf("encode: %s", h.EncodeLine())
	}
}

func TestDecodeMissingTrailingColumn(t *testing.T) {
	line := strings.TrimSuffix(idefixLine, ":0")
	h, err := DecodeLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.WarnTime != 0 {
		t.Fatalf("warn_time: got %d", h.WarnTime)
	}
	if got := h.EncodeLine(); got != idefixLine {
		t.Fatalf("encode: got %s", got)
	}
}

func TestDecodeLineErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
		col  int
	}{
		{"short", "a:b:c", -1},
		{"long", idefixLine + ":1:2", -1},
		{"bad bitmask", strings.Replace(idefixLine, ":0:0:0:0:0:0:0:0:0:0:0", ":0:0:xyz:0:0:0:0:0:0:0:0", 1), ColProtocolFlags},
		{"bad switch", strings.Replace(idefixLine, "[12]", "[12}", 1), ColHostSwitch},
		{"empty alias", strings.Replace(idefixLine, "idefix", "", 1), ColAlias},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeLine(tc.line)
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("want ErrFormat, got %v", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("want *FormatError, got %T", err)
			}
			if fe.Column != tc.col {
				t.Fatalf("column: got %d want %d", fe.Column, tc.col)
			}
		})
	}
}

func TestNegativeBitmaskIsUnsigned(t *testing.T) {
	line := "x:h::::3:10:120:4096:0:-2:60:0:0:0:0:0:0:0:0:-2147483648:0:0"
	h, err := DecodeLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.DupCheckFlags != 1<<31 {
		t.Fatalf("dupcheck flags: got %d", h.DupCheckFlags)
	}
	if v := h.Values()["dupcheck_reference"]; v != "recipient" {
		t.Fatalf("dupcheck_reference: got %v", v)
	}
	if !strings.Contains(h.EncodeLine(), ":2147483648:") {
		t.Fatalf("encode: %s", h.EncodeLine())
	}
}

func TestProtocolFlagBitIsolation(t *testing.T) {
	base, err := DecodeLine("asterix:ftp.example.org::{ab}:proxy1:2:5:60:8192:0:-2:30:0:16:8388609:0:0:0:0:3600:8388624:0:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range Fields {
		if f.Column != ColProtocolFlags || f.Kind != KindFlag {
			continue
		}
		h := *base
		cur := h.Values()[f.Name] == "yes"
		if err := h.Set(f.Name, yesNo(!cur)); err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
		dec, err := DecodeLine(h.EncodeLine())
		if err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
		if diff := dec.ProtocolFlags ^ base.ProtocolFlags; diff != 1<<f.Bit {
			t.Fatalf("%s: changed bits %b, want only bit %d", f.Name, diff, f.Bit)
		}
		if dec.HostStatus != base.HostStatus || dec.DupCheckFlags != base.DupCheckFlags {
			t.Fatalf("%s: other bitmask columns changed", f.Name)
		}
	}
}

func TestUnknownBitsArePreserved(t *testing.T) {
	// Bits 25..31 of the special flag column have no field.
	h, err := DecodeLine("x:h::::3:10:120:4096:0:-2:60:0:0:4261412864:0:0:0:0:0:0:0:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Set("ftp_mode_passive", "yes"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ProtocolFlags != 4261412864|1 {
		t.Fatalf("flags: got %d", h.ProtocolFlags)
	}
}

func TestRadioGroupExclusive(t *testing.T) {
	h := NewHost("dup")
	h.RealHost1 = "h"
	if err := h.Set("dupcheck_type", "content"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Set("dupcheck_type", "name-size"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dec, err := DecodeLine(h.EncodeLine())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := dec.Values()["dupcheck_type"]; v != "name-size" {
		t.Fatalf("dupcheck_type: got %v", v)
	}
	if got := dec.DupCheckFlags & groupMask("dupcheck_type"); got != 1<<4 {
		t.Fatalf("group bits: got %b", got)
	}
	if err := h.Set("dupcheck_type", "no"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.DupCheckFlags&groupMask("dupcheck_type") != 0 {
		t.Fatalf("group not cleared: %b", h.DupCheckFlags)
	}
	if err := h.Set("dupcheck_type", "bogus"); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestNewHostDefaults(t *testing.T) {
	h := NewHost("new")
	v := h.Values()
	want := map[string]any{
		"max_parallel_transfer":      3,
		"max_errors":                 10,
		"retry_interval":             120,
		"transfer_block_size":        4096,
		"filesize_offset_for_append": -2,
		"transfer_timeout":           60,
		"dupcheck_delete":            "yes",
		"dupcheck_type":              "no",
		"keep_connected_direction":   "no",
		"host_switch_enable":         "no",
		"ftp_mode_passive":           "no",
	}
	for k, w := range want {
		if v[k] != w {
			t.Fatalf("%s: got %v want %v", k, v[k], w)
		}
	}
}

func TestDecodeKeepsNonIntegerScalar(t *testing.T) {
	line := strings.Replace(idefixLine, ":4096:", ":4 KB:", 1)
	h, err := DecodeLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := h.Get("transfer_block_size"); v != "4 KB" {
		t.Fatalf("transfer_block_size: got %#v", v)
	}
	if v, _ := h.Get("retry_interval"); v != 300 {
		t.Fatalf("retry_interval: got %#v", v)
	}
	if got := h.EncodeLine(); got != line {
		t.Fatalf("encode:\n got %s\nwant %s", got, line)
	}
	h2, err := DecodeLine(h.EncodeLine())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *h2 != *h {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *h2, *h)
	}

	// An integer replaces the text, and text can be set back.
	if err := h.Set("transfer_block_size", "8192"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.TransferBlockSize != 8192 || strings.Contains(h.EncodeLine(), "KB") {
		t.Fatalf("after set: %s", h.EncodeLine())
	}
	if err := h.Set("transfer_block_size", "4 KB"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.EncodeLine() != line {
		t.Fatalf("after text set: %s", h.EncodeLine())
	}
}
