package alda

import (
	"fmt"
	"strings"
)

// FileEntry is one log line the dashboard wants details for. The fields are
// the attributes of the corresponding <tr>.
type FileEntry struct {
	JID string `json:"jid"`
	FNL string `json:"fnl"`
	FNR string `json:"fnr,omitempty"`
	UU  string `json:"uu"`
	SZ  string `json:"sz"`
	DTO string `json:"dto,omitempty"`
	TRT string `json:"trt,omitempty"`
	DTI string `json:"dti,omitempty"`
	DTD string `json:"dtd,omitempty"`
}

// BoxID is the DOM id of the info box of e.
func (e FileEntry) BoxID() string {
	r := strings.NewReplacer(".", "_", ",", "_")
	return e.UU + "_" + r.Replace(e.FNL)
}

// FileInfoText is the header printed above the jid_view output.
func FileInfoText(e FileEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Local name : %s\nRemote name: %s\nFile size  : %s Bytes\n", e.FNL, e.FNR, e.SZ)
	switch {
	case e.DTO != "":
		fmt.Fprintf(&b, "Output time: %s\nTrans time : %s sec\n", e.DTO, e.TRT)
	case e.DTI != "":
		fmt.Fprintf(&b, "Input time : %s\n", e.DTI)
	case e.DTD != "":
		fmt.Fprintf(&b, "Delete time : %s\n", e.DTD)
	}
	return b.String()
}
