// Package alda builds the argument lists for the AFD log tools (grep over the
// log files, alda, jid_view) and post-processes their output.
package alda

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalid marks a query the tools cannot be asked.
var ErrInvalid = errors.New("invalid log query")

var logFiles = map[string]string{
	"system":         "SYSTEM_LOG.",
	"receive":        "RECEIVE_LOG.",
	"transfer":       "TRANSFER_LOG.",
	"transfer_debug": "TRANS_DB_LOG.",
}

// IsFileLog reports whether context is served from the plain log files.
func IsFileLog(context string) bool {
	_, ok := logFiles[context]
	return ok
}

var (
	levelRe   = regexp.MustCompile(`^[A-Za-z|]+$`)
	fileNumRe = regexp.MustCompile(`^[0-9]+$`)
)

// FileLogArgs returns the grep arguments that select lines of the given
// levels ("I|W|E") from log file number file, or from all of them for "all".
func FileLogArgs(workDir, context, level, file string) ([]string, error) {
	prefix, ok := logFiles[context]
	if !ok {
		return nil, fmt.Errorf("%w: unknown log context %q", ErrInvalid, context)
	}
	if !levelRe.MatchString(level) {
		return nil, fmt.Errorf("%w: bad level %q", ErrInvalid, level)
	}
	base := filepath.Join(workDir, "log", prefix)
	args := []string{"-shP", "<(" + level + ")>"}
	switch {
	case file == "all" || file == "":
		files, err := filepath.Glob(base + "*")
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			files = []string{base + "0"}
		}
		args = append(args, files...)
	case fileNumRe.MatchString(file):
		args = append(args, base+file)
	default:
		return nil, fmt.Errorf("%w: bad log file number %q", ErrInvalid, file)
	}
	return args, nil
}

var outputFormats = map[string]string{
	"input": "<tr jid='%Uj,' fnl='%IF' uu='%IU' sz='%ISB' dti='%ITy/%ITm/%ITd %ITH:%ITM:%ITS'>" +
		"<td class='clst-dd'>%ITm.%ITd.</td>" +
		"<td class='clst-hh'>%ITH:%ITM:%ITS</td><td>%IF</td>" +
		"<td class='clst-fs'>%ISB</td></tr>",
	"output": "<tr jid='%OJ' fnl='%Of' fnr='%OF' uu='%OU' sz='%OSB' trt='%ODA'" +
		" dto='%OTy/%OTm/%OTd %OTH:%OTM:%OTS' arc='|%OA/%xOZu_%xOU_%xOL_%Of|'>" +
		"<td class='clst-dd'>%OTm.%OTd.</td><td class='clst-hh'>" +
		"%OTH:%OTM:%OTS</td><td>%Of</td><td class='clst-hn'>%OH</td>" +
		"<td class='clst-tr'>%OP</td><td class='clst-fs'>%OSB</td>" +
		"<td class='clst-tt'>%ODA</td><td class='clst-aa'>|N|</td>" +
		"</tr>",
	"delete": "<tr jid='%DJ' fnl='%DF' uu='%DU' dtd='%DTy/%DTm/%DTd %DTH:%DTM:%DTS'>" +
		"<td class='clst-dd'>%DTm.%DTd.</td>" +
		"<td class='clst-hh'>%DTH:%DTM:%DTS</td><td>%DF</td>" +
		"<td class='clst-fs'>%DSB</td><td class='clst-hn'>%DH</td>" +
		"<td class='clst-rn'>%DR</td><td class='clst-pu'>%DW</td>" +
		"</tr>",
}

// Filter keys that map to an alda option. An empty option is accepted and
// ignored.
var filterOpts = map[string]string{
	"start":         "-t",
	"end":           "-T",
	"directory":     "-d",
	"recipient":     "-h",
	"filesize":      "-S",
	"job_id":        "-j",
	"protocol":      "-p",
	"trans-time":    "-D",
	"delete-reason": "",
}

// Query is an alda search over the input, output or delete log.
type Query struct {
	Context string
	Filter  map[string]string
}

// IsAldaContext reports whether context is searched with alda.
func IsAldaContext(context string) bool {
	_, ok := outputFormats[context]
	return ok
}

// truthy accepts the spellings the dashboard forms send.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "yes", "true", "1":
		return true
	}
	return false
}

// ArchivedOnly reports whether only archived output lines are wanted.
func (q Query) ArchivedOnly() bool {
	return truthy(q.Filter["archived-only"])
}

// Args returns the alda argument list, without the work dir prefix.
func (q Query) Args() ([]string, error) {
	format, ok := outputFormats[q.Context]
	if !ok {
		return nil, fmt.Errorf("%w: unknown log context %q", ErrInvalid, q.Context)
	}
	logType := strings.ToUpper(q.Context[:1])
	if truthy(q.Filter["received-only"]) {
		logType = "R"
	}
	if logType == "I" {
		logType += "U"
	}

	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var params []string
	var filename string
	for _, k := range keys {
		val := q.Filter[k]
		opt, known := filterOpts[k]
		switch {
		case known && opt == "":
			continue
		case k == "filename":
			filename = val
		case k == "recipient":
			list := strings.Split(val, ",")
			for i := range list {
				list[i] = "%" + strings.TrimSpace(list[i])
			}
			params = append(params, opt, strings.Join(list, ","))
		case k == "output-filename-remote":
			if truthy(val) {
				format = strings.Replace(format, "%Of", "%OF", 1)
			}
		case known && val == "true":
			params = append(params, opt)
		case known:
			params = append(params, opt, val)
		}
	}

	args := append([]string{"-f", "-L", logType}, params...)
	args = append(args, "-o", format)
	if filename != "" {
		args = append(args, filename)
	}
	return args, nil
}

// FileInfoArgs returns the jid_view arguments for the job id(s) of a log
// line. Input lines carry a comma separated list.
func FileInfoArgs(context, jid string) ([]string, error) {
	var ids []string
	switch context {
	case "input":
		ids = strings.Split(strings.TrimSuffix(jid, ","), ",")
	case "output", "delete":
		ids = []string{jid}
	default:
		return nil, fmt.Errorf("%w: no file info for %q", ErrInvalid, context)
	}
	args := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: job id %q", ErrInvalid, id)
		}
		args = append(args, strconv.FormatUint(n, 16))
	}
	return args, nil
}
