package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"afd-webui/internal/afdcmd"
	"afd-webui/internal/fsa"
)

// fsaHub polls the status while at least one SSE subscriber exists and
// broadcasts each status that differs from the previous one.
type fsaHub struct {
	poll     func(ctx context.Context) ([]byte, error)
	interval time.Duration
	log      zerolog.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
	last []byte
	stop context.CancelFunc
	done chan struct{}
}

func newFSAHub(poll func(ctx context.Context) ([]byte, error), interval time.Duration, log zerolog.Logger) *fsaHub {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &fsaHub{
		poll:     poll,
		interval: interval,
		log:      log,
		subs:     make(map[chan []byte]struct{}),
	}
}

// subscribe registers a subscriber and starts the poller for the first
// one. The last known status, if any, is delivered right away.
func (h *fsaHub) subscribe() (ch chan []byte, cancel func()) {
	ch = make(chan []byte, 4)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.last != nil {
		ch <- h.last
	}
	if h.stop == nil {
		ctx, stop := context.WithCancel(context.Background())
		h.stop = stop
		h.done = make(chan struct{})
		go h.run(ctx, h.done)
	}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		var done chan struct{}
		if len(h.subs) == 0 && h.stop != nil {
			h.stop()
			h.stop = nil
			done = h.done
			h.last = nil
		}
		h.mu.Unlock()
		if done != nil {
			<-done
		}
	}
}

func (h *fsaHub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *fsaHub) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		h.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (h *fsaHub) tick(ctx context.Context) {
	b, err := h.poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.log.Warn().Err(err).Msg("fsa poll")
		}
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if ctx.Err() != nil || bytes.Equal(b, h.last) {
		return
	}
	h.last = b
	for ch := range h.subs {
		select {
		case ch <- b:
		default:
			// Slow subscriber; it picks up a later status.
		}
	}
}

// readFSA runs fsa_view once and refreshes the protocol cache.
func (s *Server) readFSA(ctx context.Context) (fsa.Status, error) {
	res, err := s.exec.Run(ctx, afdcmd.Cmd{Name: "fsa_view", WithWorkDir: true})
	if err != nil {
		return fsa.Status{}, err
	}
	if res.ExitCode != 0 {
		return fsa.Status{}, fmt.Errorf("fsa_view exit %d: %s", res.ExitCode, res.Stderr)
	}
	st := fsa.ParseStatus(res.Stdout)
	s.cache.Update(st)
	return st, nil
}

func (s *Server) pollFSA(ctx context.Context) ([]byte, error) {
	st, err := s.readFSA(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(st)
}

func (s *Server) handleFSA(w http.ResponseWriter, r *http.Request) {
	st, err := s.readFSA(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleFSAJSON wraps fsa_json output. Output that is not valid JSON is
// passed on as a string.
func (s *Server) handleFSAJSON(w http.ResponseWriter, r *http.Request) {
	res, err := s.exec.Run(r.Context(), afdcmd.Cmd{Name: "fsa_json", WithWorkDir: true})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.ExitCode != 0 {
		s.writeError(w, fmt.Errorf("fsa_json exit %d: %s", res.ExitCode, res.Stderr))
		return
	}
	out := bytes.TrimSpace([]byte(res.Stdout))
	if json.Valid(out) {
		writeJSON(w, http.StatusOK, map[string]json.RawMessage{"data": out})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"data": res.Stdout})
}

func (s *Server) handleFSAStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fl, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ch, cancel := s.fsa.subscribe()
	defer cancel()

	heartbeat := time.Duration(s.cfgSnapshot().HeartbeatSec) * time.Second
	if heartbeat <= 0 {
		heartbeat = 10 * time.Second
	}
	hb := time.NewTicker(heartbeat)
	defer hb.Stop()

	_, _ = w.Write([]byte(": ok\n\n"))
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-hb.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			fl.Flush()
		case b := <-ch:
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(b)
			_, _ = w.Write([]byte("\n\n"))
			fl.Flush()
		}
	}
}

func (s *Server) handleRequestStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fl, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ch, cancel := s.requests.subscribe()
	defer cancel()

	_, _ = w.Write([]byte(": ok\n\n"))
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(e.jsonLine())
			_, _ = w.Write([]byte("\n\n"))
			fl.Flush()
		}
	}
}
