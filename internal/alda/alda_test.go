package alda

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFileLogArgs(t *testing.T) {
	work := t.TempDir()
	logDir := filepath.Join(work, "log")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, n := range []string{"SYSTEM_LOG.0", "SYSTEM_LOG.1", "TRANSFER_LOG.0"} {
		if err := os.WriteFile(filepath.Join(logDir, n), nil, 0o644); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	args, err := FileLogArgs(work, "system", "I|W|E", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"-shP", "<(I|W|E)>", filepath.Join(logDir, "SYSTEM_LOG.1")}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("got %q", args)
	}

	args, err = FileLogArgs(work, "system", "E", "all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 4 || args[2] != filepath.Join(logDir, "SYSTEM_LOG.0") {
		t.Fatalf("glob: %q", args)
	}

	bad := []struct{ ctx, level, file string }{
		{"output", "I", "0"},
		{"system", "I)|.*(", "0"},
		{"system", "I", "../../etc/passwd"},
	}
	for _, b := range bad {
		if _, err := FileLogArgs(work, b.ctx, b.level, b.file); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%+v: want ErrInvalid, got %v", b, err)
		}
	}
}

func TestQueryArgs(t *testing.T) {
	q := Query{Context: "output", Filter: map[string]string{
		"start":                  "-1h",
		"recipient":              "idefix,asterix",
		"trans-time":             "true",
		"delete-reason":          "age",
		"archived-only":          "yes",
		"filename":               "*.grib",
		"output-filename-remote": "on",
	}}
	args, err := q.Args()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(args[:8], []string{"-f", "-L", "O", "-h", "%idefix,%asterix", "-t", "-1h", "-D"}) {
		t.Fatalf("args: %q", args)
	}
	if args[8] != "-o" || args[len(args)-1] != "*.grib" {
		t.Fatalf("tail: %q", args[8:])
	}
	if strings.Contains(args[9], "fnl='%Of'") || !strings.Contains(args[9], "fnl='%OF'") {
		t.Fatalf("remote name switch not applied: %s", args[9])
	}
	if !q.ArchivedOnly() {
		t.Fatalf("archived-only")
	}
}

func TestQueryLogTypes(t *testing.T) {
	cases := []struct {
		q    Query
		want string
	}{
		{Query{Context: "input"}, "IU"},
		{Query{Context: "delete"}, "D"},
		{Query{Context: "input", Filter: map[string]string{"received-only": "true"}}, "R"},
	}
	for _, tc := range cases {
		args, err := tc.q.Args()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if args[2] != tc.want {
			t.Fatalf("%+v: got %q", tc.q, args[2])
		}
	}
	if _, err := (Query{Context: "system"}).Args(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestMarkArchived(t *testing.T) {
	arc := t.TempDir()
	if err := os.MkdirAll(filepath.Join(arc, "idefix", "0"), 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(arc, "idefix", "0", "a.grib"), []byte("x"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := []string{
		"<tr arc='|idefix/0/a.grib|'><td>|N|</td></tr>",
		"<tr arc='|idefix/0/gone.grib|'><td>|N|</td></tr>",
		"<tr arc='|/abs/path|'><td>|N|</td></tr>",
		"",
	}
	got := MarkArchived(lines, arc, false)
	want := []string{
		"<tr arc='idefix/0/a.grib'><td>Y</td></tr>",
		"<tr arc=''><td>D</td></tr>",
		"<tr arc=''><td>N</td></tr>",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
	got = MarkArchived(lines, arc, true)
	if !reflect.DeepEqual(got, want[:1]) {
		t.Fatalf("archived only: %q", got)
	}
}

func TestFileInfo(t *testing.T) {
	args, err := FileInfoArgs("input", "255,16,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(args, []string{"ff", "10"}) {
		t.Fatalf("got %q", args)
	}
	args, err = FileInfoArgs("output", "4096")
	if err != nil || !reflect.DeepEqual(args, []string{"1000"}) {
		t.Fatalf("got %q %v", args, err)
	}
	if _, err := FileInfoArgs("output", "x1"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
	if _, err := FileInfoArgs("system", "1"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}

	e := FileEntry{JID: "4096", FNL: "a.b,c", FNR: "A", UU: "5f3", SZ: "10", DTO: "2026/10/14 10:00:00", TRT: "0.2"}
	if e.BoxID() != "5f3_a_b_c" {
		t.Fatalf("box id: %s", e.BoxID())
	}
	text := FileInfoText(e)
	if !strings.HasPrefix(text, "Local name : a.b,c\n") || !strings.Contains(text, "Trans time : 0.2 sec\n") {
		t.Fatalf("text: %q", text)
	}
}
