package hostconfig

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const sampleConfig = `# HOST_CONFIG
#
# AH:HN1:HN2:HT:PXY:AT:ME:RI:TB:SR:FSO:TT:NB:HS:SF:TRL:TTL:SSB:SRB:DT:DF:KC:WT

idefix:192.168.1.24:192.168.1.25:[12]::5:10:300:4096:10:-2:20:0:0:0:0:0:0:0:0:0:0:0
asterix:ftp.example.org::{ab}:proxy1:2:5:60:8192:0:-2:30:0:16:8388609:0:0:0:0:3600:8388624:0:0
`

func mustParse(t *testing.T, text string) *Set {
	t.Helper()
	s, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestParsePreservesHeader(t *testing.T) {
	s := mustParse(t, sampleConfig)
	if !reflect.DeepEqual(s.Order, []string{"idefix", "asterix"}) {
		t.Fatalf("order: %v", s.Order)
	}
	if len(s.Header) != 4 || s.Header[0] != "# HOST_CONFIG" || s.Header[3] != "" {
		t.Fatalf("header: %q", s.Header)
	}
	b, err := s.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != sampleConfig {
		t.Fatalf("rewrite differs:\n%s", b)
	}
	if s.Version == "" {
		t.Fatalf("missing version")
	}
}

func TestParseValues(t *testing.T) {
	s := mustParse(t, sampleConfig)
	v := s.Hosts["asterix"].Values()
	checks := map[string]any{
		"host_switch_enable":   "yes",
		"host_switch_auto":     "yes",
		"host_switch_char1":    "a",
		"proxy_name":           "proxy1",
		"ignore_error_warning": "yes",
		"do_not_delete":        "no",
		"ftp_mode_passive":     "yes",
		"ftp_disable_mlst":     "yes",
		"dupcheck_type":        "name-size",
		"dupcheck_delete":      "yes",
		"dupcheck_crc":         "no",
		"dupcheck_timeout":     3600,
	}
	for k, want := range checks {
		if v[k] != want {
			t.Fatalf("%s: got %v want %v", k, v[k], want)
		}
	}
}

func TestParseErrorsCarryLine(t *testing.T) {
	text := sampleConfig + "broken:line\n"
	_, err := Parse(strings.NewReader(text))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("want *FormatError, got %v", err)
	}
	if fe.Line != 7 || fe.Alias != "broken" {
		t.Fatalf("got line %d alias %q", fe.Line, fe.Alias)
	}
	if !strings.Contains(fe.Error(), "line 7") {
		t.Fatalf("message: %s", fe.Error())
	}
}

func TestParseDuplicateAlias(t *testing.T) {
	_, err := Parse(strings.NewReader(idefixLine + "\n" + idefixLine + "\n"))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("want ErrFormat, got %v", err)
	}
}

func TestPatchExistingAndNew(t *testing.T) {
	s := mustParse(t, sampleConfig)
	before := *s.Hosts["asterix"]

	if err := s.Patch("idefix", map[string]string{"max_errors": "20", "ftp_keep_alive": "yes"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h := s.Hosts["idefix"]; h.MaxErrors != 20 || h.ProtocolFlags != 1<<2 || h.RetryInterval != 300 {
		t.Fatalf("patched host: %+v", *h)
	}
	if *s.Hosts["asterix"] != before {
		t.Fatalf("other alias modified")
	}

	if err := s.Patch("newhost", map[string]string{"host_name_real1": "new.example.org"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Order[len(s.Order)-1] != "newhost" {
		t.Fatalf("order: %v", s.Order)
	}
	n := s.Hosts["newhost"]
	if n.MaxParallelTransfer != 3 || n.TransferTimeout != 60 || n.Values()["dupcheck_delete"] != "yes" {
		t.Fatalf("new host defaults: %+v", *n)
	}
}

func TestPatchRejectsBadData(t *testing.T) {
	s := mustParse(t, sampleConfig)
	before := *s.Hosts["idefix"]
	cases := []map[string]string{
		{"max_errors": "1:2"},
		{"host_name_real1": "a:b"},
		{"no_such_field": "1"},
		{"alias": "other"},
		{"ftp_mode_passive": "maybe", "max_errors": "1"},
	}
	for _, fields := range cases {
		if err := s.Patch("idefix", fields); !errors.Is(err, ErrValidation) {
			t.Fatalf("%v: want ErrValidation, got %v", fields, err)
		}
	}
	if *s.Hosts["idefix"] != before {
		t.Fatalf("rejected patch modified the record")
	}
	if err := s.Patch("muchtoolong", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for long alias, got %v", err)
	}
	if _, ok := s.Hosts["muchtoolong"]; ok || len(s.Order) != 2 {
		t.Fatalf("rejected new host was added")
	}
}

func TestReseedKeepsHostStatus(t *testing.T) {
	s := mustParse(t, sampleConfig)
	if err := s.Reseed("asterix", map[string]string{"host_name_real1": "ftp2.example.org"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := s.Hosts["asterix"]
	if h.HostStatus != 16 {
		t.Fatalf("host status: got %d", h.HostStatus)
	}
	if h.ProxyName != "" || h.ProtocolFlags != 0 || h.MaxErrors != 10 {
		t.Fatalf("fields not reset to defaults: %+v", *h)
	}
}

func TestReorder(t *testing.T) {
	s := mustParse(t, sampleConfig)
	err := s.Reorder([]string{"unknownAlias"})
	var ve *ValidationError
	if !errors.As(err, &ve) || !reflect.DeepEqual(ve.Aliases, []string{"unknownAlias"}) {
		t.Fatalf("want ValidationError listing unknownAlias, got %v", err)
	}
	if !reflect.DeepEqual(s.Order, []string{"idefix", "asterix"}) {
		t.Fatalf("order changed: %v", s.Order)
	}
	if err := s.Reorder([]string{"asterix", "asterix"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for duplicates, got %v", err)
	}

	if err := s.Reorder([]string{"asterix", "idefix"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s.Order, []string{"asterix", "idefix"}) {
		t.Fatalf("order: %v", s.Order)
	}

	// Leaving a host out removes it.
	if err := s.Reorder([]string{"idefix"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Hosts["asterix"]; ok {
		t.Fatalf("omitted host still present")
	}
}

func TestRemove(t *testing.T) {
	s := mustParse(t, sampleConfig)
	if !s.Remove("idefix") || s.Remove("idefix") {
		t.Fatalf("remove result")
	}
	if !reflect.DeepEqual(s.Order, []string{"asterix"}) {
		t.Fatalf("order: %v", s.Order)
	}
}

func TestView(t *testing.T) {
	s := mustParse(t, sampleConfig)
	hint := func(alias string) string {
		if alias == "asterix" {
			return ".scheme-remote.scheme-ftp"
		}
		return ""
	}

	all := s.View(nil, hint)
	if len(all.Data) != 2 || !reflect.DeepEqual(all.Order, s.Order) {
		t.Fatalf("all: %+v", all)
	}
	if all.Data["asterix"]["protocol-class"] != ".scheme-remote.scheme-ftp" {
		t.Fatalf("hint: %v", all.Data["asterix"]["protocol-class"])
	}

	first := ""
	v := s.View(&first, hint)
	if len(v.Data) != 1 || v.Data["idefix"] == nil || len(v.Order) != 2 {
		t.Fatalf("first: %+v", v)
	}

	one := "asterix"
	v = s.View(&one, nil)
	if len(v.Data) != 1 || v.Data["asterix"]["alias"] != "asterix" {
		t.Fatalf("one: %+v", v)
	}
}

func TestHeaderOnlyFile(t *testing.T) {
	s := mustParse(t, "# only comments\n\n\n")
	if len(s.Order) != 0 || len(s.Header) != 1 {
		t.Fatalf("got order %v header %q", s.Order, s.Header)
	}
}

func TestCommentsBetweenHostsSurviveSave(t *testing.T) {
	text := sampleConfig[:strings.Index(sampleConfig, "asterix")] +
		"# about asterix\n" +
		sampleConfig[strings.Index(sampleConfig, "asterix"):] +
		"# end\n"
	s := mustParse(t, text)
	if got := s.Comments["asterix"]; len(got) != 1 || got[0] != "# about asterix" {
		t.Fatalf("comments: %q", s.Comments)
	}
	b, err := s.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != text {
		t.Fatalf("bytes:\n%s\nwant\n%s", b, text)
	}

	s.Remove("asterix")
	b, _ = s.Bytes()
	if strings.Contains(string(b), "about asterix") || !strings.HasSuffix(string(b), "# end\n") {
		t.Fatalf("after remove:\n%s", b)
	}
}

func TestLongAliasFromFileStaysEditable(t *testing.T) {
	line := strings.Replace(sampleConfig[strings.Index(sampleConfig, "idefix"):], "idefix", "verylongalias", 1)
	s := mustParse(t, line)
	if err := s.Patch("verylongalias", map[string]string{"max_errors": "3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Hosts["verylongalias"].MaxErrors != 3 {
		t.Fatalf("patch not applied")
	}
	if err := s.Reseed("verylongalias", map[string]string{"host_name_real1": "h"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Patch("otherlongalias", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation for new long alias, got %v", err)
	}
}
