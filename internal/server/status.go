package server

import (
	"net/http"
	"strconv"

	"afd-webui/internal/fsops"
	"afd-webui/internal/version"
)

type statusResponse struct {
	Version     version.Info   `json:"version"`
	WorkDir     string         `json:"work_dir"`
	Mock        bool           `json:"mock"`
	Disk        *fsops.Usage   `json:"disk,omitempty"`
	DiskError   string         `json:"disk_error,omitempty"`
	Subscribers int            `json:"subscribers"`
	Hosts       int            `json:"hosts_cached"`
	Cleanup     *CleanupReport `json:"cleanup,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfgSnapshot()
	resp := statusResponse{
		Version:     version.Get(),
		WorkDir:     cfg.WorkDir,
		Mock:        cfg.Mock,
		Subscribers: s.fsa.subscribers(),
		Hosts:       len(s.cache.Aliases()),
	}
	if u, err := fsops.DiskUsage(cfg.WorkDir); err != nil {
		resp.DiskError = err.Error()
	} else {
		resp.Disk = &u
	}
	if r.URL.Query().Get("cleanup") == "1" {
		rep := s.runTmpCleanupOnce(r.Context(), s.tmpMaxAge())
		resp.Cleanup = &rep
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRequests lists recent requests. Query parameters: limit, method,
// errors=1, ip, path.
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	out := s.requests.filtered(RequestFilter{
		Method:       q.Get("method"),
		OnlyErrors:   q.Get("errors") == "1",
		RemoteIPSub:  q.Get("ip"),
		PathContains: q.Get("path"),
		Limit:        limit,
	})
	if out == nil {
		out = []RequestEntry{}
	}
	writeJSON(w, http.StatusOK, out)
}
