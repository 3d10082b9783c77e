package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"afd-webui/internal/afdcmd"
	"afd-webui/internal/alda"
)

// Output limits in MB for the log searches.
const (
	fileLogLimitMB = 5
	aldaLimitMB    = 3
)

// logFilter decodes a flat JSON object. Non-string values are formatted,
// so {"archived-only": true} and {"archived-only": "on"} both work.
func logFilter(r *http.Request) (map[string]string, error) {
	raw := map[string]any{}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, badRequest("read body: %v", err)
	}
	if len(strings.TrimSpace(string(b))) > 0 {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, badRequest("decode filter: %v", err)
		}
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
		case string:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// handleLog streams a log search as text/plain. Headers go out with the
// first chunk, so errors before any output still get a JSON error body.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	context := mux.Vars(r)["context"]
	filter, err := logFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cfg := s.cfgSnapshot()

	var (
		c       afdcmd.Cmd
		process func([]byte) []byte
	)
	switch {
	case alda.IsFileLog(context):
		args, err := alda.FileLogArgs(cfg.WorkDir, context, filter["level"], filter["file"])
		if err != nil {
			s.writeError(w, err)
			return
		}
		c = afdcmd.Cmd{Name: "grep", Args: args, Limit: fileLogLimitMB}
	case alda.IsAldaContext(context):
		q := alda.Query{Context: context, Filter: filter}
		args, err := q.Args()
		if err != nil {
			s.writeError(w, err)
			return
		}
		c = afdcmd.Cmd{Name: "alda", Args: args, WithWorkDir: true, Limit: aldaLimitMB}
		if context == "output" {
			archiveDir, archivedOnly := cfg.ArchiveDir(), q.ArchivedOnly()
			process = func(chunk []byte) []byte {
				lines := alda.MarkArchived(strings.Split(string(chunk), "\n"), archiveDir, archivedOnly)
				if len(lines) == 0 {
					return nil
				}
				return []byte(strings.Join(lines, "\n") + "\n")
			}
		}
	default:
		s.writeError(w, badRequest("unknown log context %q", context))
		return
	}

	fl, _ := w.(http.Flusher)
	started := false
	res, err := s.exec.Stream(r.Context(), c, func(chunk []byte) error {
		if process != nil {
			chunk = process(chunk)
		}
		if len(chunk) == 0 {
			return nil
		}
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		if fl != nil {
			fl.Flush()
		}
		return nil
	})
	switch {
	case err != nil && !started:
		s.writeError(w, err)
	case err != nil:
		s.log.Warn().Err(err).Str("context", context).Msg("log search aborted")
	case !started && c.Name == "alda" && res.ExitCode != 0:
		s.writeError(w, fmt.Errorf("alda exit %d: %s", res.ExitCode, res.Stderr))
	case !started:
		// grep exits 1 when nothing matched.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

type fileInfoResult struct {
	JID  string `json:"jid"`
	FNL  string `json:"fnl"`
	FNR  string `json:"fnr,omitempty"`
	UU   string `json:"uu"`
	Text string `json:"text"`
}

// handleFileInfo runs jid_view for each requested log entry. Entries whose
// jid_view fails are left out.
func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	context := mux.Vars(r)["context"]
	var entries []alda.FileEntry
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&entries); err != nil {
		s.writeError(w, badRequest("decode body: %v", err))
		return
	}
	out := []fileInfoResult{}
	for _, e := range entries {
		args, err := alda.FileInfoArgs(context, e.JID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		res, err := s.exec.Run(r.Context(), afdcmd.Cmd{Name: "jid_view", Args: args, WithWorkDir: true})
		if err != nil {
			s.writeError(w, err)
			return
		}
		if res.ExitCode != 0 {
			s.log.Warn().Str("jid", e.JID).Int("exit", res.ExitCode).Msg("jid_view failed")
			continue
		}
		html, err := renderFileInfo(e, res.Stdout)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out = append(out, fileInfoResult{JID: e.JID, FNL: e.FNL, FNR: e.FNR, UU: e.UU, Text: html})
	}
	writeJSON(w, http.StatusOK, out)
}
