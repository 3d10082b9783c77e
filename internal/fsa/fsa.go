// Package fsa parses the text output of fsa_view.
package fsa

import (
	"regexp"
	"strconv"
	"strings"
)

// Job is one transfer slot of a host.
type Job struct {
	JobNum        int    `json:"job_num"`
	ConnectStatus string `json:"connect_status,omitempty"`
	NumberOfFiles int    `json:"number_of_files"`
}

// Host is the dashboard status of one host.
type Host struct {
	Alias      string   `json:"alias"`
	Ord        int      `json:"ord"`
	Real1      string   `json:"real1,omitempty"`
	Real2      string   `json:"real2,omitempty"`
	Display    string   `json:"display,omitempty"`
	Direction  string   `json:"direction"`
	DebugMode  *string  `json:"debug_mode"`
	ErrorCount int      `json:"error_count"`
	FileCount  int      `json:"file_count"`
	FileSize   int64    `json:"file_size"`
	Transfers  int      `json:"transfers"`
	Protocol   []string `json:"protocol,omitempty"`
	HostStatus []string `json:"host_status"`
	Jobs       []Job    `json:"jobs"`
}

// Status is what the dashboard receives on every update.
type Status struct {
	Class string `json:"class"`
	Data  []Host `json:"data"`
}

var headRe = regexp.MustCompile(`===> (\S+) .(\d+). <===`)

// ParseStatus parses the output of "fsa_view" without arguments.
func ParseStatus(text string) Status {
	st := Status{Class: "fsa", Data: []Host{}}
	var cur *Host
	flush := func() {
		if cur != nil {
			st.Data = append(st.Data, *cur)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || line[0] == ' ' || line[0] == '-' {
			continue
		}
		if line[0] == '=' {
			flush()
			cur = &Host{HostStatus: []string{}, Jobs: []Job{}}
			if m := headRe.FindStringSubmatch(line); m != nil {
				cur.Alias = m[1]
				cur.Ord, _ = strconv.Atoi(m[2])
			}
			continue
		}
		if cur == nil {
			continue
		}
		if strings.Contains(line, "|") {
			parseJobRow(cur, line)
			continue
		}
		key, val, ok := splitKey(line)
		if !ok {
			continue
		}
		switch key {
		case "Real hostname 1":
			cur.Real1 = val
		case "Real hostname 2":
			cur.Real2 = val
		case "Hostname (display)":
			if len(val) >= 2 {
				cur.Display = val[1 : len(val)-1]
			}
		case "Direction":
			cur.Direction = ""
			if strings.Contains(val, "RETRIEVE") {
				cur.Direction += "R"
			}
			if strings.Contains(val, "SEND") {
				cur.Direction += "S"
			}
		case "Debug mode":
			if val == "OFF" {
				cur.DebugMode = nil
			} else {
				v := val
				cur.DebugMode = &v
			}
		case "Error counter":
			cur.ErrorCount = int(leadingInt(val))
		case "Total file counter":
			cur.FileCount = int(leadingInt(val))
		case "Total file size":
			cur.FileSize = leadingInt(val)
		case "Active transfers":
			cur.Transfers = int(leadingInt(val))
		case "Allowed transfers":
			n := int(leadingInt(val))
			for i := 0; i < n; i++ {
				cur.Jobs = append(cur.Jobs, Job{JobNum: i})
			}
		}
		switch {
		case strings.HasPrefix(key, "Protocol"):
			cur.Protocol = strings.Fields(val)
		case strings.HasPrefix(key, "Host status"), strings.HasPrefix(key, "Special flag"):
			cur.HostStatus = append(cur.HostStatus, strings.Fields(val)...)
		}
	}
	flush()
	return st
}

// Protocols maps alias to the protocols fsa_view reported for it.
func (s Status) Protocols() map[string][]string {
	m := make(map[string][]string, len(s.Data))
	for _, h := range s.Data {
		if h.Alias != "" && len(h.Protocol) > 0 {
			m[h.Alias] = h.Protocol
		}
	}
	return m
}

func parseJobRow(h *Host, line string) {
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	switch cells[0] {
	case "Connect status":
		for i, c := range cells[1:] {
			if i < len(h.Jobs) {
				h.Jobs[i].ConnectStatus = c
			}
		}
	case "Number of files":
		for i, c := range cells[1:] {
			if i < len(h.Jobs) {
				h.Jobs[i].NumberOfFiles = int(leadingInt(c))
			}
		}
	}
}

// splitKey splits "Key   : value". The value is what follows the first colon
// up to the next one.
func splitKey(line string) (key, val string, ok bool) {
	parts := strings.Split(line, ":")
	if len(parts) < 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// leadingInt parses the leading decimal digits of s, 0 if there are none.
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.ParseInt(s[:end], 10, 64)
	return n
}
