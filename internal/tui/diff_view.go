package tui

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/MKhiriev/go-refsync/models"
)

// renderFieldDiffs shows a character diff from the local to the remote value
// of every string field present on both sides.
func renderFieldDiffs(c models.Conflict, fields []string) string {
	if c.Local == nil || c.Remote == nil {
		return ""
	}

	var lines []string
	for _, field := range fields {
		local, okLocal := c.Local[field].(string)
		remote, okRemote := c.Remote[field].(string)
		if !okLocal || !okRemote || local == remote {
			continue
		}
		lines = append(lines, field+": "+renderDiff(local, remote))
	}
	return strings.Join(lines, "\n")
}

func renderDiff(from, to string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(diffDeleteStyle.Render("[-" + d.Text + "]"))
		case diffmatchpatch.DiffInsert:
			b.WriteString(diffInsertStyle.Render("[+" + d.Text + "]"))
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
