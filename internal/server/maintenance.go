package server

import (
	"context"
	"time"
)

// CleanupReport describes what a temp-file cleanup run did.
type CleanupReport struct {
	Dir        string   `json:"dir"`
	Removed    []string `json:"removed,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// runTmpCleanupOnce removes HOST_CONFIG temp files that an interrupted save
// left in the etc directory and that are older than maxAge. It holds the
// writer lock while doing so.
func (s *Server) runTmpCleanupOnce(ctx context.Context, maxAge time.Duration) CleanupReport {
	start := time.Now()
	rep := CleanupReport{Dir: s.cfgSnapshot().EtcDir()}
	removed, err := s.store.CleanupTemps(ctx, maxAge)
	rep.Removed = removed
	if err != nil {
		rep.Error = err.Error()
		s.log.Warn().Err(err).Str("dir", rep.Dir).Msg("temp file cleanup")
	}
	if len(removed) > 0 {
		s.log.Info().Strs("files", removed).Msg("removed stale HOST_CONFIG temp files")
	}
	rep.DurationMs = time.Since(start).Milliseconds()
	return rep
}

func (s *Server) tmpMaxAge() time.Duration {
	maxAge := time.Duration(s.cfgSnapshot().TmpCleanupMaxAgeSec) * time.Second
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return maxAge
}

// RunMaintenance removes every temp file left from before the start, then
// runs the age based cleanup until ctx is done. The config is re-read every
// round.
func (s *Server) RunMaintenance(ctx context.Context) error {
	_ = s.runTmpCleanupOnce(ctx, 0)
	for {
		interval := time.Duration(s.cfgSnapshot().TmpCleanupIntervalSec) * time.Second
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		if interval < 10*time.Second {
			interval = 10 * time.Second
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}

		_ = s.runTmpCleanupOnce(ctx, s.tmpMaxAge())
	}
}
