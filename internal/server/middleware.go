package server

import (
	"net"
	"net/http"
	"time"
)

// statusRecorder captures status and size for the request log. It keeps
// Flush working for the streaming handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		user, _, _ := r.BasicAuth()
		dur := time.Since(start)
		e := RequestEntry{
			TimeUnixMs: start.UnixMilli(),
			RemoteIP:   clientIP(r),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			RespBytes:  rec.bytes,
			DurationMs: dur.Milliseconds(),
		}
		if rec.status != http.StatusUnauthorized {
			e.User = user
		}
		s.requests.add(e)

		ev := s.log.Info()
		if rec.status >= 500 {
			ev = s.log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int64("bytes", rec.bytes).
			Dur("dur", dur).
			Str("remote", e.RemoteIP).
			Msg("request")
	})
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For is not trusted.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
