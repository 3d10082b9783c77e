package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"afd-webui/internal/hostconfig"
	"afd-webui/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("afd-hc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var workDir, file string
	fs.StringVar(&workDir, "w", os.Getenv("AFD_WORK_DIR"), "AFD work directory (AFD_WORK_DIR)")
	fs.StringVar(&file, "f", "", "HOST_CONFIG path (default <work_dir>/etc/HOST_CONFIG)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	args := fs.Args()
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	cmd := strings.ToLower(args[0])
	if cmd == "version" {
		fmt.Fprintln(stdout, version.Get().String())
		return 0
	}
	if cmd == "fields" {
		printFields(stdout)
		return 0
	}

	if file == "" {
		if workDir == "" {
			fmt.Fprintln(stderr, "error: -w or AFD_WORK_DIR is required")
			return 2
		}
		file = filepath.Join(workDir, "etc", "HOST_CONFIG")
	}
	st := hostconfig.NewStore(file)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch cmd {
	case "dump":
		err = dump(st, args[1:], stdout)
	case "check":
		err = check(st, stdout)
	case "get":
		if len(args) != 3 {
			fmt.Fprintln(stderr, "get <alias> <field>")
			return 2
		}
		err = get(st, args[1], args[2], stdout)
	case "set":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "set <alias> <field>=<value>...")
			return 2
		}
		err = set(ctx, st, args[1], args[2:])
	case "order":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "order <alias>...")
			return 2
		}
		_, err = st.Update(ctx, "", func(s *hostconfig.Set) error {
			return s.Reorder(args[1:])
		})
	case "rm":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "rm <alias>")
			return 2
		}
		_, err = st.Update(ctx, "", func(s *hostconfig.Set) error {
			if !s.Remove(args[1]) {
				return fmt.Errorf("unknown alias %q", args[1])
			}
			return nil
		})
	default:
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func dump(st *hostconfig.Store, args []string, w io.Writer) error {
	s, err := st.Load()
	if err != nil {
		return err
	}
	var filter *string
	if len(args) > 0 {
		filter = &args[0]
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.View(filter, nil))
}

func check(st *hostconfig.Store, w io.Writer) error {
	s, err := st.Load()
	if err != nil {
		var fe *hostconfig.FormatError
		if errors.As(err, &fe) {
			fmt.Fprintf(w, "line %d alias %q column %d\n", fe.Line, fe.Alias, fe.Column)
		}
		return err
	}
	bad := 0
	for _, a := range s.Order {
		if err := s.Hosts[a].Validate(); err != nil {
			fmt.Fprintf(w, "%s: %v\n", a, err)
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d invalid host(s)", bad)
	}
	fmt.Fprintf(w, "ok: %d hosts, version %s\n", len(s.Order), s.Version)
	return nil
}

func get(st *hostconfig.Store, alias, field string, w io.Writer) error {
	s, err := st.Load()
	if err != nil {
		return err
	}
	h, ok := s.Host(alias)
	if !ok {
		return fmt.Errorf("unknown alias %q", alias)
	}
	v, ok := h.Get(field)
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	fmt.Fprintln(w, v)
	return nil
}

func set(ctx context.Context, st *hostconfig.Store, alias string, pairs []string) error {
	fields := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return fmt.Errorf("bad assignment %q, want field=value", p)
		}
		fields[k] = v
	}
	_, err := st.Update(ctx, "", func(s *hostconfig.Set) error {
		if _, ok := s.Host(alias); !ok {
			return fmt.Errorf("unknown alias %q", alias)
		}
		return s.Patch(alias, fields)
	})
	return err
}

func printFields(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tCOLUMN\tBIT\tOPTION\tDEFAULT")
	for _, name := range hostconfig.Names() {
		fields, _ := hostconfig.Lookup(name)
		for _, f := range fields {
			bit := "-"
			if f.Kind == hostconfig.KindFlag || f.Kind == hostconfig.KindOption {
				bit = strconv.Itoa(int(f.Bit))
			}
			opt := f.Option
			if opt == "" {
				opt = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", f.Name, f.Kind, f.Column, bit, opt, f.Default)
		}
	}
	tw.Flush()
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "afd-hc [-w dir] [-f file] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  dump [alias]                 print the JSON view")
	fmt.Fprintln(w, "  check                        parse and validate")
	fmt.Fprintln(w, "  get <alias> <field>")
	fmt.Fprintln(w, "  set <alias> <field>=<value>...")
	fmt.Fprintln(w, "  order <alias>...             reorder, omitted aliases are removed")
	fmt.Fprintln(w, "  rm <alias>")
	fmt.Fprintln(w, "  fields                       print the field table")
	fmt.Fprintln(w, "  version")
}
