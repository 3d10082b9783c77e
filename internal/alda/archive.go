package alda

import (
	"strings"

	"afd-webui/internal/fsops"
)

// Archive states written into the |N| cell of an output log line.
const (
	Archived    = "Y"
	ArchiveGone = "D"
	NotArchived = "N"
)

// MarkArchived resolves the |archive path| segment of each output log line
// below archiveDir and replaces the |N| placeholder with Y, D or N. Lines
// whose file is not in the archive lose the path. With archivedOnly only Y
// lines are kept.
func MarkArchived(lines []string, archiveDir string, archivedOnly bool) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 4 {
			if !archivedOnly {
				out = append(out, line)
			}
			continue
		}
		mark := len(parts) - 2
		switch p := parts[1]; {
		case strings.HasPrefix(p, "/"):
			parts[1] = ""
			parts[mark] = NotArchived
		case p != "" && inArchive(archiveDir, p):
			parts[mark] = Archived
		default:
			parts[1] = ""
			parts[mark] = ArchiveGone
		}
		if archivedOnly && parts[mark] != Archived {
			continue
		}
		out = append(out, strings.Join(parts, ""))
	}
	return out
}

func inArchive(archiveDir, rel string) bool {
	_, err := fsops.Resolve(archiveDir, rel, false)
	return err == nil
}
