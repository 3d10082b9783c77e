package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"afd-webui/internal/afdcmd"
)

type afdControl struct {
	name string
	args []string
}

// afdControls maps "<action>/<command>" to the control program.
var afdControls = map[string]afdControl{
	"amg/toggle": {"afdcmd", []string{"-Y"}},
	"fd/toggle":  {"afdcmd", []string{"-Z"}},
	"dc/update":  {"udc", nil},
	"hc/update":  {"uhc", nil},
	"afd/start":  {"afd", []string{"-a"}},
	"afd/stop":   {"afd", []string{"-s"}},
}

func (s *Server) handleAFD(w http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)
	key := v["action"] + "/" + v["command"]
	c, ok := afdControls[key]
	if !ok {
		s.writeError(w, badRequest("unknown control %q", key))
		return
	}
	s.runAFD(w, r, afdcmd.Cmd{Name: c.name, Args: c.args, WithWorkDir: true})
}
