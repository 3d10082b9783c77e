package server

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"afd-webui/internal/afdconfig"
	"afd-webui/internal/pathutil"
)

func (s *Server) handleDCList(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfgSnapshot()
	files, err := afdconfig.EditableFiles(cfg.EtcDir(), s.afdConfig())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"filename": files})
}

func dcName(r *http.Request) (string, error) {
	name, err := pathutil.CleanRel(mux.Vars(r)["name"])
	if err != nil {
		return "", badRequest("%v", err)
	}
	return name, nil
}

func (s *Server) handleDCRead(w http.ResponseWriter, r *http.Request) {
	name, err := dcName(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	text, err := s.etcFiles().Read(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleDCSave(w http.ResponseWriter, r *http.Request) {
	name, err := dcName(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, badRequest("read body: %v", err))
		return
	}
	if err := s.etcFiles().Save(name, string(b)); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info().Str("file", name).Int("bytes", len(b)).Msg("etc file saved")
	w.WriteHeader(http.StatusNoContent)
}
