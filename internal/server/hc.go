package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"afd-webui/internal/hostconfig"
	"afd-webui/internal/hoststatus"
)

func etag(version string) string { return `"` + version + `"` }

// ifMatch returns the version from an If-Match header, or "".
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "*" {
		return ""
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

// handleHCRead answers the HOST_CONFIG view. A single host view asks the
// adapter (cache then fsa_view); the full view only uses the cache so a
// large config does not fan out into one command per host.
func (s *Server) handleHCRead(w http.ResponseWriter, r *http.Request) {
	set, err := s.store.Load()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var filter *string
	q := s.query
	if vals, ok := r.URL.Query()["alias"]; ok {
		a := ""
		if len(vals) > 0 {
			a = vals[0]
		}
		filter = &a
	} else {
		q = s.cache
	}
	ctx := r.Context()
	view := set.View(filter, func(alias string) string {
		return hoststatus.Hint(ctx, q, alias)
	})
	w.Header().Set("ETag", etag(view.Version))
	writeJSON(w, http.StatusOK, view)
}

type hcSaveRequest struct {
	Order   []string                     `json:"order"`
	Data    map[string]map[string]string `json:"data"`
	Replace bool                         `json:"replace"`
	Version string                       `json:"version"`
}

func (s *Server) handleHCSave(w http.ResponseWriter, r *http.Request) {
	var req hcSaveRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, badRequest("decode body: %v", err))
		return
	}
	expect := ifMatch(r)
	if expect == "" {
		expect = req.Version
	}
	aliases := make([]string, 0, len(req.Data))
	for a := range req.Data {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	set, err := s.store.Update(r.Context(), expect, func(set *hostconfig.Set) error {
		for _, a := range aliases {
			var err error
			if req.Replace {
				err = set.Reseed(a, req.Data[a])
			} else {
				err = set.Patch(a, req.Data[a])
			}
			if err != nil {
				return err
			}
		}
		if req.Order != nil {
			return set.Reorder(req.Order)
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info().Int("hosts", len(aliases)).Bool("replace", req.Replace).Str("version", set.Version).Msg("HOST_CONFIG saved")
	w.Header().Set("ETag", etag(set.Version))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHCDelete(w http.ResponseWriter, r *http.Request) {
	alias := mux.Vars(r)["alias"]
	set, err := s.store.Update(r.Context(), ifMatch(r), func(set *hostconfig.Set) error {
		if !set.Remove(alias) {
			return &hostconfig.ValidationError{Msg: "unknown aliases", Aliases: []string{alias}}
		}
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("ETag", etag(set.Version))
	w.WriteHeader(http.StatusNoContent)
}
