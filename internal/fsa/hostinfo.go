package fsa

import "strings"

// HostInfo is the detail view of "fsa_view <alias>".
type HostInfo struct {
	Hostname string
	Host1    string
	Host2    string
	Real1    string
	Real2    string
	// Toggle is the active host, HOST_ONE or HOST_TWO.
	Toggle         string
	FilesDone      string
	BytesSent      string
	LastConnection string
	Connections    string
	TotalErrors    string
	RetryInterval  string
	Protocol       string
	InfoText       string
}

// ParseHostInfo parses the output of "fsa_view <alias>".
func ParseHostInfo(text string) HostInfo {
	var hi HostInfo
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, "\r")
		if l == "" || l[0] == ' ' || l[0] == '-' {
			continue
		}
		if l[0] == '=' {
			if f := strings.Fields(l); len(f) > 1 {
				hi.Hostname = f[1]
				hi.Host1, hi.Host2 = f[1], f[1]
			}
			continue
		}
		parts := strings.Split(l, ":")
		if len(parts) < 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "Real hostname 1":
			hi.Real1 = val
		case "Real hostname 2":
			hi.Real2 = val
		case "Host toggle":
			hi.Toggle = val
		case "Host toggle string":
			if r := []rune(val); len(r) >= 3 {
				hi.Host1 = hi.Hostname + string(r[1])
				hi.Host2 = hi.Hostname + string(r[2])
			}
		case "File counter done":
			hi.FilesDone = val
		case "Bytes send":
			hi.BytesSent = val
		case "Last connection":
			hi.LastConnection = strings.TrimSpace(strings.SplitN(l, ":", 2)[1])
		case "Connections":
			hi.Connections = val
		case "Total errors":
			hi.TotalErrors = val
		case "Retry interval":
			hi.RetryInterval = val
		}
		if strings.HasPrefix(key, "Protocol") {
			if f := strings.Fields(val); len(f) > 0 {
				hi.Protocol = f[0]
			}
		}
	}
	return hi
}
