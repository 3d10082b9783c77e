package afdconfig

import (
	"path"
	"regexp"
	"strings"
)

// FilterProgram converts archive files whose name matches Pattern.
type FilterProgram struct {
	Glob    string
	Pattern *regexp.Regexp
	Command string
}

// Programs are the VIEW_DATA_PROG and VIEW_DATA_NO_FILTER_PROG entries.
type Programs struct {
	Filter []FilterProgram
	Named  map[string]string
}

// ViewPrograms collects the view programs configured in c.
//
//	VIEW_DATA_PROG --with-show_cmd "bufr2text %s" *.bufr
//	VIEW_DATA_NO_FILTER_PROG hexdump hexdump -C
func ViewPrograms(c *Config) Programs {
	p := Programs{Named: map[string]string{}}
	for _, v := range c.All("VIEW_DATA_PROG") {
		i := strings.LastIndexByte(v, ' ')
		if i < 0 {
			continue
		}
		glob := v[i+1:]
		re, err := regexp.Compile(globToRegexp(glob))
		if err != nil {
			continue
		}
		p.Filter = append(p.Filter, FilterProgram{Glob: glob, Pattern: re, Command: stripShowCmd(v[:i])})
	}
	for _, v := range c.All("VIEW_DATA_NO_FILTER_PROG") {
		name, cmd, ok := strings.Cut(v, " ")
		if !ok {
			continue
		}
		p.Named[name] = stripShowCmd(cmd)
	}
	return p
}

// Match returns the command of the first filter whose pattern matches the
// base name of file.
func (p Programs) Match(file string) (string, bool) {
	base := path.Base(file)
	for _, f := range p.Filter {
		if f.Pattern.MatchString(base) {
			return f.Command, true
		}
	}
	return "", false
}

func stripShowCmd(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Replace(s, `--with-show_cmd "`, "", 1)
	return strings.TrimSuffix(s, `"`)
}

func globToRegexp(glob string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

// SplitCommand splits a configured command into program and arguments.
func SplitCommand(cmd string) (string, []string) {
	f := strings.Fields(cmd)
	if len(f) == 0 {
		return "", nil
	}
	return f[0], f[1:]
}
