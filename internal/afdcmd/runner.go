// Package afdcmd runs the AFD command line programs (afdcmd, fsa_view, alda,
// jid_view, ...) on behalf of the web UI.
package afdcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// ErrOutputTooLarge is returned when a command writes more to stdout than its
// limit allows. The process is killed.
var ErrOutputTooLarge = errors.New("afdcmd: output too large, reduce with filter")

const (
	defaultLimitMB = 1
	maxLimitMB     = 10
	readChunk      = 32 * 1024
)

// Cmd describes one invocation.
type Cmd struct {
	Name string
	Args []string
	// WithWorkDir prepends "-w <WorkDir>" to Args.
	WithWorkDir bool
	// Limit is the stdout limit in MB. Zero uses the runner default.
	Limit int
}

// Result of a finished command. A non-zero ExitCode is not an error.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor is what the HTTP layer and the status adapter depend on.
type Executor interface {
	Run(ctx context.Context, c Cmd) (Result, error)
	Stream(ctx context.Context, c Cmd, fn func(chunk []byte) error) (Result, error)
}

// Runner executes commands directly (no shell).
type Runner struct {
	WorkDir string
	// Mock answers every command with the content of
	// <MockDir>/dummy.<name>.txt instead of executing it.
	Mock    bool
	MockDir string
	Timeout time.Duration
	// MaxOutput is the default stdout limit in MB (1..10).
	MaxOutput int
	Log       zerolog.Logger
}

var _ Executor = (*Runner)(nil)

func (r *Runner) argv(c Cmd) []string {
	if !c.WithWorkDir {
		return c.Args
	}
	args := make([]string, 0, len(c.Args)+2)
	args = append(args, "-w", r.WorkDir)
	return append(args, c.Args...)
}

func (r *Runner) limit(c Cmd) int64 {
	mb := c.Limit
	if mb <= 0 {
		mb = r.MaxOutput
	}
	if mb <= 0 {
		mb = defaultLimitMB
	}
	if mb > maxLimitMB {
		mb = maxLimitMB
	}
	return int64(mb) * 1024 * 1024
}

// Run executes c and collects its output.
func (r *Runner) Run(ctx context.Context, c Cmd) (Result, error) {
	var out bytes.Buffer
	res, err := r.Stream(ctx, c, func(chunk []byte) error {
		out.Write(chunk)
		return nil
	})
	res.Stdout = out.String()
	return res, err
}

// Stream executes c and hands stdout to fn in chunks that end on a newline
// (except possibly the last one). A chunk is only valid during the call.
// The returned Result has no Stdout.
func (r *Runner) Stream(ctx context.Context, c Cmd, fn func(chunk []byte) error) (Result, error) {
	args := r.argv(c)
	r.Log.Debug().Str("cmd", c.Name).Strs("args", args).Bool("mock", r.Mock).Msg("exec")
	if r.Mock {
		return r.mock(c, fn)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Name, args...)
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &capWriter{buf: &stderr, max: 64 * 1024}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("afdcmd: %s: %w", c.Name, err)
	}
	if err := cmd.Start(); err != nil {
		r.Log.Warn().Err(err).Str("cmd", c.Name).Msg("exec failed")
		return Result{}, fmt.Errorf("afdcmd: start %s: %w", c.Name, err)
	}

	readErr := copyChunks(stdout, r.limit(c), fn)
	if readErr != nil {
		_ = cmd.Process.Kill()
	}
	waitErr := cmd.Wait()

	res := Result{Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	switch {
	case readErr != nil:
		if errors.Is(readErr, ErrOutputTooLarge) {
			r.Log.Warn().Str("cmd", c.Name).Int64("limit", r.limit(c)).Msg("stdout too large, killed")
		}
		return res, readErr
	case ctx.Err() != nil:
		r.Log.Warn().Err(ctx.Err()).Str("cmd", c.Name).Msg("exec timeout")
		return res, fmt.Errorf("afdcmd: %s: %w", c.Name, ctx.Err())
	}
	var ee *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &ee) {
		r.Log.Warn().Err(waitErr).Str("cmd", c.Name).Msg("exec failed")
		return res, fmt.Errorf("afdcmd: %s: %w", c.Name, waitErr)
	}
	r.Log.Debug().Str("cmd", c.Name).Int("exit", res.ExitCode).Msg("exec done")
	return res, nil
}

func (r *Runner) mock(c Cmd, fn func([]byte) error) (Result, error) {
	p := filepath.Join(r.MockDir, "dummy."+c.Name+".txt")
	f, err := os.Open(p)
	if err != nil {
		r.Log.Warn().Err(err).Str("cmd", c.Name).Msg("no mock output")
		return Result{ExitCode: 1, Stderr: err.Error()}, nil
	}
	defer f.Close()
	if err := copyChunks(f, r.limit(c), fn); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

// copyChunks reads src until EOF, delivering newline-terminated chunks.
func copyChunks(src io.Reader, limit int64, fn func([]byte) error) error {
	buf := make([]byte, readChunk)
	var pending []byte
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > limit {
				return ErrOutputTooLarge
			}
			pending = append(pending, buf[:n]...)
			if i := bytes.LastIndexByte(pending, '\n'); i >= 0 {
				if ferr := fn(pending[:i+1]); ferr != nil {
					return ferr
				}
				pending = append(pending[:0], pending[i+1:]...)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		return fn(pending)
	}
	return nil
}

// capWriter keeps the first max bytes and silently drops the rest.
type capWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *capWriter) Write(p []byte) (int, error) {
	if room := w.max - w.buf.Len(); room > 0 {
		if len(p) > room {
			w.buf.Write(p[:room])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}
