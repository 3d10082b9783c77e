package server

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// RequestEntry is a compact per-request record for /webui/requests.
// Credentials are never recorded, only the authenticated user name.
type RequestEntry struct {
	ID         uint64 `json:"id"`
	TimeUnixMs int64  `json:"time_unix_ms"`
	RemoteIP   string `json:"remote_ip"`
	User       string `json:"user,omitempty"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	RespBytes  int64  `json:"resp_bytes"`
	DurationMs int64  `json:"duration_ms"`
}

// requestRing keeps the most recent requests and streams new ones via SSE.
type requestRing struct {
	mu      sync.Mutex
	ring    []RequestEntry
	cap     int
	nextPos int
	count   int
	nextID  uint64
	subs    map[chan RequestEntry]struct{}
}

func newRequestRing(capacity int) *requestRing {
	if capacity <= 0 {
		capacity = 512
	}
	return &requestRing{
		ring: make([]RequestEntry, capacity),
		cap:  capacity,
		subs: make(map[chan RequestEntry]struct{}),
	}
}

func (h *requestRing) add(e RequestEntry) {
	if e.TimeUnixMs == 0 {
		e.TimeUnixMs = time.Now().UnixMilli()
	}

	h.mu.Lock()
	h.nextID++
	e.ID = h.nextID

	h.ring[h.nextPos] = e
	h.nextPos = (h.nextPos + 1) % h.cap
	if h.count < h.cap {
		h.count++
	}
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber, drop.
		}
	}
	h.mu.Unlock()
}

func (h *requestRing) snapshot(limit int) []RequestEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > h.count {
		limit = h.count
	}
	if limit == 0 {
		return nil
	}

	start := h.nextPos - h.count
	if start < 0 {
		start += h.cap
	}
	start = (start + (h.count - limit)) % h.cap

	out := make([]RequestEntry, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, h.ring[(start+i)%h.cap])
	}
	return out
}

type RequestFilter struct {
	Method       string
	OnlyErrors   bool
	RemoteIPSub  string
	PathContains string
	Limit        int
}

// filtered returns the most recent matching entries in chronological order.
func (h *requestRing) filtered(f RequestFilter) []RequestEntry {
	all := h.snapshot(0)
	if len(all) == 0 {
		return nil
	}
	limit := f.Limit
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	out := make([]RequestEntry, 0, limit)
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if f.Method != "" && !strings.EqualFold(e.Method, f.Method) {
			continue
		}
		if f.OnlyErrors && e.Status < 400 {
			continue
		}
		if !containsFold(e.RemoteIP, f.RemoteIPSub) {
			continue
		}
		if !containsFold(e.Path, f.PathContains) {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func containsFold(hay, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(hay), strings.ToLower(needle))
}

func (h *requestRing) subscribe() (ch chan RequestEntry, cancel func()) {
	ch = make(chan RequestEntry, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}

func (e RequestEntry) jsonLine() []byte {
	b, _ := json.Marshal(e)
	return b
}
