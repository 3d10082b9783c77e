package afdconfig

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const afdConfig = `# AFD_CONFIG
  indented lines are ignored
DIR_CONFIG_NAME          DIR_CONFIG
DIR_CONFIG_NAME          DIR_CONFIG.local
MAX_CONNECTIONS          50
LONELY_KEY
VIEW_DATA_PROG           --with-show_cmd "bufr2text -v %s" *.bufr
VIEW_DATA_PROG           gribdump G?_*
VIEW_DATA_NO_FILTER_PROG hexdump hexdump -C
VIEW_DATA_NO_FILTER_PROG pretty --with-show_cmd "http://localhost:9000/pretty file:%s"
`

func mustParse(t *testing.T) *Config {
	t.Helper()
	c, err := Parse(strings.NewReader(afdConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestParse(t *testing.T) {
	c := mustParse(t)
	if v, ok := c.Get("MAX_CONNECTIONS"); !ok || v != "50" {
		t.Fatalf("get: %q %v", v, ok)
	}
	if got := c.All("DIR_CONFIG_NAME"); !reflect.DeepEqual(got, []string{"DIR_CONFIG", "DIR_CONFIG.local"}) {
		t.Fatalf("all: %q", got)
	}
	if _, ok := c.Get("LONELY_KEY"); ok {
		t.Fatalf("key without value kept")
	}
	if _, ok := c.Get("indented"); ok {
		t.Fatalf("indented line parsed")
	}
	if c.Keys()[0] != "DIR_CONFIG_NAME" {
		t.Fatalf("keys: %q", c.Keys())
	}
}

func TestViewPrograms(t *testing.T) {
	p := ViewPrograms(mustParse(t))
	if len(p.Filter) != 2 {
		t.Fatalf("filter: %+v", p.Filter)
	}
	if p.Filter[0].Command != "bufr2text -v %s" || p.Filter[0].Glob != "*.bufr" {
		t.Fatalf("first filter: %+v", p.Filter[0])
	}
	if cmd, ok := p.Match("idefix/0/x_1_2_obs.bufr"); !ok || cmd != "bufr2text -v %s" {
		t.Fatalf("match: %q %v", cmd, ok)
	}
	if cmd, ok := p.Match("GX_12"); !ok || cmd != "gribdump" {
		t.Fatalf("match ?: %q %v", cmd, ok)
	}
	if _, ok := p.Match("obs.bufr.bak"); ok {
		t.Fatalf("suffix matched")
	}
	if p.Named["hexdump"] != "hexdump -C" || p.Named["pretty"] != "http://localhost:9000/pretty file:%s" {
		t.Fatalf("named: %q", p.Named)
	}
	name, args := SplitCommand(p.Named["hexdump"])
	if name != "hexdump" || !reflect.DeepEqual(args, []string{"-C"}) {
		t.Fatalf("split: %q %q", name, args)
	}
}

func TestEditableFiles(t *testing.T) {
	etc := t.TempDir()
	for _, n := range []string{"group.list", "DIR_CONFIG", "HOST_CONFIG", "AFD_CONFIG"} {
		if err := os.WriteFile(filepath.Join(etc, n), []byte("x\n"), 0o644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	c := mustParse(t)
	files, err := EditableFiles(etc, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(files, []string{"DIR_CONFIG", "group.list"}) {
		t.Fatalf("files: %q", files)
	}

	e := EtcFiles{Dir: etc, Config: c}
	if err := e.Save("group.list", "[grüppe]\nidefix\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(etc, "group.list"))
	if !strings.Contains(string(raw), "gr\xfcppe") {
		t.Fatalf("not latin1: %q", raw)
	}
	text, err := e.Read("group.list")
	if err != nil || text != "[grüppe]\nidefix\n" {
		t.Fatalf("read: %q %v", text, err)
	}
	for _, n := range []string{"HOST_CONFIG", "../etc/AFD_CONFIG", "rename.rule"} {
		if _, err := e.Read(n); !errors.Is(err, ErrNotEditable) {
			t.Fatalf("%s: want ErrNotEditable, got %v", n, err)
		}
	}
}

func TestEditableNamesDefaults(t *testing.T) {
	c, _ := Parse(strings.NewReader("RENAME_RULE_NAME rules/../../x\n"))
	if got := EditableNames(c); !reflect.DeepEqual(got, []string{"group.list", "DIR_CONFIG"}) {
		t.Fatalf("got %q", got)
	}
	c, _ = Parse(strings.NewReader(""))
	if got := EditableNames(c); !reflect.DeepEqual(got, []string{"group.list", "rename.rule", "DIR_CONFIG"}) {
		t.Fatalf("got %q", got)
	}
}
