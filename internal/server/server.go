package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"afd-webui/internal/afdcmd"
	"afd-webui/internal/afdconfig"
	"afd-webui/internal/alda"
	"afd-webui/internal/config"
	"afd-webui/internal/fsops"
	"afd-webui/internal/hostconfig"
	"afd-webui/internal/hoststatus"
	"afd-webui/internal/version"
)

// Options wires a Server to its collaborators.
type Options struct {
	Config config.Config
	Exec   afdcmd.Executor
	Log    zerolog.Logger
	// HTTPClient posts archive files to view web services.
	HTTPClient *http.Client
}

type Server struct {
	cfgMu sync.RWMutex
	cfg   config.Config

	exec   afdcmd.Executor
	log    zerolog.Logger
	client *http.Client

	store *hostconfig.Store
	// cache is filled by the status poller; query falls back to fsa_view.
	cache *hoststatus.Cache
	query hoststatus.Querier

	users    *userStore
	requests *requestRing
	fsa      *fsaHub
}

func New(opts Options) *Server {
	cfg := opts.Config
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.CommandTimeoutSec) * time.Second}
	}
	s := &Server{
		cfg:      cfg,
		exec:     opts.Exec,
		log:      opts.Log,
		client:   client,
		store:    hostconfig.NewStore(cfg.HostConfigPath()),
		cache:    hoststatus.NewCache(),
		users:    newUserStore(cfg.UsersFile),
		requests: newRequestRing(1024),
	}
	s.query = hoststatus.Chain{s.cache, &hoststatus.CommandQuerier{
		Exec:    s.exec,
		Timeout: time.Duration(cfg.StatusTimeoutMS) * time.Millisecond,
	}}
	s.fsa = newFSAHub(s.pollFSA, time.Duration(cfg.FSAIntervalMS)*time.Millisecond, s.log)
	return s
}

func (s *Server) cfgSnapshot() config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// Handler returns the routed, authenticated HTTP handler.
func (s *Server) Handler() http.Handler {
	cfg := s.cfgSnapshot()
	r := mux.NewRouter()
	r.Use(s.logRequests, s.basicAuth)

	r.Handle("/", http.RedirectHandler("/ui/", http.StatusFound)).Methods(http.MethodGet)
	r.PathPrefix("/ui/").Handler(http.StripPrefix("/ui/", http.FileServer(http.Dir(cfg.WebDir))))

	r.HandleFunc("/fsa", s.handleFSA).Methods(http.MethodGet)
	r.HandleFunc("/fsa/json", s.handleFSAJSON).Methods(http.MethodGet)
	r.HandleFunc("/fsa/stream", s.handleFSAStream).Methods(http.MethodGet)

	alias := r.PathPrefix("/alias").Subrouter()
	alias.HandleFunc("/{action:select|deselect}", s.handleAliasSelect).Methods(http.MethodPost)
	alias.HandleFunc("/{alias}/info", s.handleHostInfo).Methods(http.MethodGet)
	alias.HandleFunc("/{alias}/info", s.handleHostInfoSave).Methods(http.MethodPut)
	alias.HandleFunc("/{alias}/config", s.handleHostDirConfig).Methods(http.MethodGet)
	alias.HandleFunc("/{action}", s.handleAliasAction).Methods(http.MethodPost)

	r.HandleFunc("/afd/{action}/{command}", s.handleAFD).Methods(http.MethodPost)

	r.HandleFunc("/hc", s.handleHCRead).Methods(http.MethodGet)
	r.HandleFunc("/hc", s.handleHCSave).Methods(http.MethodPost)
	r.HandleFunc("/hc/{alias}", s.handleHCDelete).Methods(http.MethodDelete)

	r.HandleFunc("/dc/files", s.handleDCList).Methods(http.MethodGet)
	r.HandleFunc("/dc/files/{name:.+}", s.handleDCRead).Methods(http.MethodGet)
	r.HandleFunc("/dc/files/{name:.+}", s.handleDCSave).Methods(http.MethodPut)

	r.HandleFunc("/log/{context}", s.handleLog).Methods(http.MethodPost)
	r.HandleFunc("/log/{context}/info", s.handleFileInfo).Methods(http.MethodPost)

	r.HandleFunc("/view/{mode}/{arc:[a-zA-Z0-9.,_/-]+}", s.handleView).Methods(http.MethodGet)

	r.HandleFunc("/webui/requests", s.handleRequests).Methods(http.MethodGet)
	r.HandleFunc("/webui/requests/stream", s.handleRequestStream).Methods(http.MethodGet)
	r.HandleFunc("/webui/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.Get())
	}).Methods(http.MethodGet)
	return r
}

// afdConfig reads etc/AFD_CONFIG. A missing or unreadable file yields a nil
// config, which reads as empty.
func (s *Server) afdConfig() *afdconfig.Config {
	cfg := s.cfgSnapshot()
	c, err := afdconfig.Load(filepath.Join(cfg.EtcDir(), "AFD_CONFIG"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Msg("read AFD_CONFIG")
		}
		return nil
	}
	return c
}

func (s *Server) etcFiles() afdconfig.EtcFiles {
	return afdconfig.EtcFiles{Dir: s.cfgSnapshot().EtcDir(), Config: s.afdConfig()}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hostconfig.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, hostconfig.ErrFormat):
		return http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, hostconfig.ErrValidation), errors.Is(err, alda.ErrInvalid), errors.Is(err, errBadRequest),
		errors.Is(err, fsops.ErrNotLatin1):
		return http.StatusBadRequest
	case errors.Is(err, hostconfig.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, afdcmd.ErrOutputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, afdconfig.ErrNotEditable):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.log.Error().Err(err).Msg("request failed")
	} else {
		s.log.Debug().Err(err).Int("status", code).Msg("request rejected")
	}
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
