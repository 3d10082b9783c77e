package version

import (
	"fmt"
	"runtime"
)

// Build-time variables (override via -ldflags -X ...).
// Example:
//
//	go build -ldflags "-X afd-webui/internal/version.Version=1.0.0 -X afd-webui/internal/version.Commit=abcd123 -X afd-webui/internal/version.BuildDate=2026-10-14" ./cmd/afd-webui
var (
	Version   = "1.0.0-dev"
	Commit    = ""
	BuildDate = ""
)

// Info identifies the running build.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Name:      "afd-webui",
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func (i Info) String() string {
	// Keep this stable for CLI output.
	v := i.Version
	if v == "" {
		v = "dev"
	}
	s := v
	if i.Name != "" {
		s = i.Name + " " + v
	}
	if i.Commit != "" {
		s += fmt.Sprintf(" (%s)", i.Commit)
	}
	if i.BuildDate != "" {
		s += fmt.Sprintf(" built %s", i.BuildDate)
	}
	s += fmt.Sprintf(" [%s]", i.GoVersion)
	return s
}
