// Package hoststatus supplies live per-host protocol information used to
// annotate HOST_CONFIG records. Failures are never errors: a lookup either
// yields a value or it does not.
package hoststatus

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"afd-webui/internal/afdcmd"
	"afd-webui/internal/fsa"
)

// DefaultTimeout bounds a single fsa_view lookup.
const DefaultTimeout = 3 * time.Second

// Querier looks up the protocol string of a host ("FTP SFTP").
type Querier interface {
	QueryHostStatus(ctx context.Context, alias string) (string, bool)
}

// CommandQuerier asks fsa_view for one host.
type CommandQuerier struct {
	Exec    afdcmd.Executor
	Timeout time.Duration
}

func (q *CommandQuerier) QueryHostStatus(ctx context.Context, alias string) (string, bool) {
	if q == nil || q.Exec == nil || alias == "" {
		return "", false
	}
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := q.Exec.Run(ctx, afdcmd.Cmd{Name: "fsa_view", Args: []string{alias}, WithWorkDir: true})
	if err != nil || res.ExitCode != 0 {
		return "", false
	}
	for _, h := range fsa.ParseStatus(res.Stdout).Data {
		if h.Alias == alias && len(h.Protocol) > 0 {
			return strings.Join(h.Protocol, " "), true
		}
	}
	return "", false
}

// Cache holds the protocols last reported by the status poller.
type Cache struct {
	mu     sync.RWMutex
	protos map[string][]string
}

func NewCache() *Cache {
	return &Cache{protos: map[string][]string{}}
}

// Update merges the protocols of a fresh fsa_view status.
func (c *Cache) Update(st fsa.Status) {
	p := st.Protocols()
	c.mu.Lock()
	for alias, list := range p {
		c.protos[alias] = list
	}
	c.mu.Unlock()
}

// Protocols returns the cached list for alias.
func (c *Cache) Protocols(alias string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.protos[alias]
	return p, ok
}

func (c *Cache) QueryHostStatus(_ context.Context, alias string) (string, bool) {
	p, ok := c.Protocols(alias)
	if !ok || len(p) == 0 {
		return "", false
	}
	return strings.Join(p, " "), true
}

// Aliases lists cached hosts, sorted.
func (c *Cache) Aliases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.protos))
	for a := range c.protos {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Chain asks each querier in turn and returns the first answer.
type Chain []Querier

func (ch Chain) QueryHostStatus(ctx context.Context, alias string) (string, bool) {
	for _, q := range ch {
		if q == nil {
			continue
		}
		if s, ok := q.QueryHostStatus(ctx, alias); ok {
			return s, true
		}
	}
	return "", false
}

var protoScheme = map[string]string{
	"FTP":  ".scheme-remote.scheme-ftp",
	"SFTP": ".scheme-remote.scheme-sftp",
	"SCP":  ".scheme-remote.scheme-sftp",
	"HTTP": ".scheme-remote",
	"SMTP": ".scheme-remote",
	"WMO":  ".scheme-remote",
	"FILE": ".scheme-local",
	"LOC":  ".scheme-local",
	"EXEC": ".scheme-local",
}

// SchemeClass maps a protocol list to the dashboard CSS classes.
func SchemeClass(status string) string {
	var out []string
	for _, p := range strings.Fields(status) {
		if c := protoScheme[strings.ToUpper(p)]; c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}

// Hint returns the presentation class of alias, "" when unknown.
func Hint(ctx context.Context, q Querier, alias string) string {
	if q == nil {
		return ""
	}
	s, ok := q.QueryHostStatus(ctx, alias)
	if !ok {
		return ""
	}
	return SchemeClass(s)
}
