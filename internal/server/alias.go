package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"

	"github.com/gorilla/mux"

	"afd-webui/internal/afdcmd"
	"afd-webui/internal/fsa"
	"afd-webui/internal/fsops"
	"afd-webui/internal/pathutil"
)

// afdcmdArgs maps host actions to afdcmd options.
var afdcmdArgs = map[string][]string{
	"start":     {"-t", "-q"},
	"stop":      {"-T", "-Q"},
	"able":      {"-X"},
	"debug":     {"-d"},
	"trace":     {"-c"},
	"fulltrace": {"-C"},
	"switch":    {"-s"},
	"retry":     {"-r"},
}

const maxBody = 4 << 20

// requestAliases reads the alias list from a JSON body {"alias":[...]} or
// from repeated "alias" form values.
func requestAliases(r *http.Request) ([]string, error) {
	var aliases []string
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body struct {
			Alias []string `json:"alias"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
			return nil, badRequest("decode body: %v", err)
		}
		aliases = body.Alias
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, badRequest("parse form: %v", err)
		}
		aliases = r.Form["alias"]
	}
	if len(aliases) == 0 {
		return nil, badRequest("no alias given")
	}
	for _, a := range aliases {
		if !pathutil.ValidAlias(a) {
			return nil, badRequest("invalid alias %q", a)
		}
	}
	return aliases, nil
}

func (s *Server) handleAliasAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	opts, ok := afdcmdArgs[action]
	if !ok {
		s.writeError(w, badRequest("unknown host action %q", action))
		return
	}
	aliases, err := requestAliases(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	args := append(append([]string{}, opts...), aliases...)
	s.runAFD(w, r, afdcmd.Cmd{Name: "afdcmd", Args: args, WithWorkDir: true})
}

// runAFD runs a control command and answers 204, or 500 with stderr when
// it exits non-zero.
func (s *Server) runAFD(w http.ResponseWriter, r *http.Request, c afdcmd.Cmd) {
	res, err := s.exec.Run(r.Context(), c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.ExitCode != 0 {
		s.log.Warn().Str("cmd", c.Name).Strs("args", c.Args).Int("exit", res.ExitCode).Msg("command failed")
		s.writeError(w, fmt.Errorf("%s exit %d: %s", c.Name, res.ExitCode, res.Stderr))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAliasSelect searches the configured hosts for the select and
// deselect dialogs.
func (s *Server) handleAliasSelect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, badRequest("parse form: %v", err))
		return
	}
	pattern := r.Form.Get("modal_select_string")
	if pattern == "" || pattern == "*" {
		pattern = ".*"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		s.writeError(w, badRequest("search pattern: %v", err))
		return
	}
	inInfo := r.Form.Get("modal_select_where") == "info"
	byAlias := r.Form.Get("modal_select_hostname") == "alias"
	protocols := make(map[string]bool)
	for _, p := range r.Form["modal_select_protocol"] {
		protocols[p] = true
	}

	set, err := s.store.Load()
	if err != nil {
		s.writeError(w, err)
		return
	}
	etc := s.cfgSnapshot().EtcDir()
	found := []string{}
	for _, a := range set.Order {
		h, ok := set.Hosts[a]
		if !ok || !s.protocolMatches(a, protocols) {
			continue
		}
		switch {
		case inInfo:
			text, err := fsops.ReadLatin1File(filepath.Join(etc, "INFO-"+a))
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					s.log.Warn().Err(err).Str("alias", a).Msg("read INFO file")
				}
				continue
			}
			if re.MatchString(text) {
				found = append(found, a)
			}
		case byAlias:
			if re.MatchString(h.Alias) {
				found = append(found, a)
			}
		default:
			if re.MatchString(h.RealHost1) || re.MatchString(h.RealHost2) {
				found = append(found, a)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"action": mux.Vars(r)["action"], "alias": found})
}

// protocolMatches accepts hosts whose protocols are not known yet.
func (s *Server) protocolMatches(alias string, want map[string]bool) bool {
	pl, ok := s.cache.Protocols(alias)
	if !ok || len(pl) == 0 {
		return true
	}
	for _, p := range pl {
		if want[p] {
			return true
		}
	}
	return false
}

func aliasVar(r *http.Request) (string, error) {
	a := mux.Vars(r)["alias"]
	if !pathutil.ValidAlias(a) {
		return "", badRequest("invalid alias %q", a)
	}
	return a, nil
}

func (s *Server) handleHostInfo(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.exec.Run(r.Context(), afdcmd.Cmd{Name: "fsa_view", Args: []string{alias}, WithWorkDir: true})
	if err != nil {
		s.writeError(w, err)
		return
	}
	var info fsa.HostInfo
	if res.ExitCode == 0 {
		info = fsa.ParseHostInfo(res.Stdout)
	}
	if info.Hostname == "" {
		info.Hostname = alias
	}
	text, err := fsops.ReadLatin1File(filepath.Join(s.cfgSnapshot().EtcDir(), "INFO-"+info.Hostname))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("alias", alias).Msg("read INFO file")
	}
	page, err := renderHostInfo(info, text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

// handleHostInfoSave replaces etc/INFO-<alias> with the request body.
func (s *Server) handleHostInfoSave(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, badRequest("read body: %v", err))
		return
	}
	p := filepath.Join(s.cfgSnapshot().EtcDir(), "INFO-"+alias)
	if err := fsops.WriteLatin1FileAtomic(p, string(b)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHostDirConfig(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.exec.Run(r.Context(), afdcmd.Cmd{Name: "get_dc_data", Args: []string{"-h", alias}, WithWorkDir: true})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.ExitCode != 0 {
		s.writeError(w, fmt.Errorf("get_dc_data exit %d: %s", res.ExitCode, res.Stderr))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, res.Stdout)
}
