package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"afd-webui/internal/afdcmd"
	"afd-webui/internal/afdconfig"
	"afd-webui/internal/fsops"
	"afd-webui/internal/pathutil"
)

// handleView shows an archive file, converted by the configured view
// program when there is one.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	rel, err := pathutil.CleanRel(v["arc"])
	if err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}
	p, err := fsops.Resolve(s.cfgSnapshot().ArchiveDir(), rel, false)
	if err != nil {
		if errors.Is(err, fsops.ErrSymlinkNotAllowed) {
			err = badRequest("%v", err)
		}
		s.writeError(w, err)
		return
	}

	programs := afdconfig.ViewPrograms(s.afdConfig())
	var cmd string
	if v["mode"] == "auto" {
		cmd, _ = programs.Match(rel)
	} else {
		cmd = programs.Named[v["mode"]]
	}
	name, args := afdconfig.SplitCommand(cmd)
	switch {
	case name == "":
		s.serveArchiveFile(w, r, p)
	case strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://"):
		s.viewWebService(w, r, name, args, p)
	default:
		s.viewProgram(w, r, name, args, p)
	}
}

func (s *Server) serveArchiveFile(w http.ResponseWriter, r *http.Request, p string) {
	f, err := os.Open(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if st.IsDir() {
		s.writeError(w, badRequest("%s is a directory", filepath.Base(p)))
		return
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

// viewProgram runs a local converter. "%s" in args is replaced by the file
// path; without a placeholder the path is appended.
func (s *Server) viewProgram(w http.ResponseWriter, r *http.Request, name string, args []string, p string) {
	out := make([]string, 0, len(args)+1)
	placed := false
	for _, a := range args {
		if strings.Contains(a, "%s") {
			a = strings.ReplaceAll(a, "%s", p)
			placed = true
		}
		out = append(out, a)
	}
	if !placed {
		out = append(out, p)
	}
	res, err := s.exec.Run(r.Context(), afdcmd.Cmd{Name: name, Args: out})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.ExitCode != 0 {
		s.log.Warn().Str("cmd", name).Int("exit", res.ExitCode).Str("stderr", res.Stderr).Msg("view program failed")
		s.writeError(w, fmt.Errorf("view %s: %w", filepath.Base(p), os.ErrNotExist))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, res.Stdout)
}

// viewWebService posts the file to a conversion service as multipart form
// data. Each arg is "field:value"; a value of "%s" carries the file.
func (s *Server) viewWebService(w http.ResponseWriter, r *http.Request, url string, args []string, p string) {
	f, err := os.Open(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeViewForm(mw, args, f, filepath.Base(p)))
	}()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		s.writeError(w, err)
		return
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("view web service")
		s.writeError(w, fmt.Errorf("view web service: %w", err))
		return
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func writeViewForm(mw *multipart.Writer, args []string, file io.Reader, filename string) error {
	for _, a := range args {
		k, v, ok := strings.Cut(a, ":")
		if !ok {
			continue
		}
		if v == "%s" {
			part, err := mw.CreateFormFile(k, filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, file); err != nil {
				return err
			}
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	return mw.Close()
}
