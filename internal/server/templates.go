package server

import (
	"embed"
	"html/template"
	"strings"

	"afd-webui/internal/alda"
	"afd-webui/internal/fsa"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const noHostInfo = "No information available."

type hostInfoPage struct {
	Info     fsa.HostInfo
	InfoText string
}

type fileInfoBox struct {
	BoxID    string
	JID      string
	Filename string
	InfoText string
}

func renderHostInfo(info fsa.HostInfo, text string) (string, error) {
	if text == "" {
		text = noHostInfo
	}
	var b strings.Builder
	err := templates.ExecuteTemplate(&b, "host_info.html", hostInfoPage{Info: info, InfoText: text})
	return b.String(), err
}

func renderFileInfo(e alda.FileEntry, jidView string) (string, error) {
	var b strings.Builder
	err := templates.ExecuteTemplate(&b, "file_info.html", fileInfoBox{
		BoxID:    e.BoxID(),
		JID:      e.JID,
		Filename: e.FNL,
		InfoText: alda.FileInfoText(e) + jidView,
	})
	return b.String(), err
}
