package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sokinpui/srcfix/internal/fs"
	"github.com/sokinpui/srcfix/internal/ui"
)

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

const noNewlineMarker = "\\ No newline at end of file\n"

type entry struct {
	op   diffmatchpatch.Operation
	text string
	// oldBefore and newBefore count the old and new lines preceding the entry.
	oldBefore, newBefore int
}

type hunk struct{ start, end int }

// lineDiff computes a line-level diff of before and after.
func lineDiff(before, after string) []entry {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var entries []entry
	oldCount, newCount := 0, 0
	for _, d := range diffs {
		for _, line := range fs.SplitLines(d.Text) {
			entries = append(entries, entry{op: d.Type, text: line, oldBefore: oldCount, newBefore: newCount})
			if d.Type != diffmatchpatch.DiffInsert {
				oldCount++
			}
			if d.Type != diffmatchpatch.DiffDelete {
				newCount++
			}
		}
	}
	return entries
}

func groupHunks(entries []entry, context int) []hunk {
	var hunks []hunk
	for i, e := range entries {
		if e.op == diffmatchpatch.DiffEqual {
			continue
		}
		start := max(0, i-context)
		end := min(len(entries)-1, i+context)
		if n := len(hunks); n > 0 && start <= hunks[n-1].end+1 {
			hunks[n-1].end = end
			continue
		}
		hunks = append(hunks, hunk{start: start, end: end})
	}
	return hunks
}

// Write renders a unified-style diff of before and after to w and reports
// whether anything changed.
func Write(w io.Writer, name, before, after string, context int) (bool, error) {
	entries := lineDiff(before, after)
	hunks := groupHunks(entries, context)
	if len(hunks) == 0 {
		return false, nil
	}

	var b strings.Builder
	ui.RemovedColor.Fprintf(&b, "--- a/%s\n", name)
	ui.AddedColor.Fprintf(&b, "+++ b/%s\n", name)

	for _, h := range hunks {
		oldLen, newLen := 0, 0
		for _, e := range entries[h.start : h.end+1] {
			if e.op != diffmatchpatch.DiffInsert {
				oldLen++
			}
			if e.op != diffmatchpatch.DiffDelete {
				newLen++
			}
		}
		first := entries[h.start]
		ui.HunkColor.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", first.oldBefore+1, oldLen, first.newBefore+1, newLen)

		for _, e := range entries[h.start : h.end+1] {
			text := e.text
			terminated := strings.HasSuffix(text, "\n")
			if !terminated {
				text += "\n"
			}
			switch e.op {
			case diffmatchpatch.DiffInsert:
				ui.AddedColor.Fprint(&b, "+"+text)
			case diffmatchpatch.DiffDelete:
				ui.RemovedColor.Fprint(&b, "-"+text)
			default:
				b.WriteString(" " + text)
			}
			if !terminated {
				b.WriteString(noNewlineMarker)
			}
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return true, fmt.Errorf("failed to write preview: %w", err)
	}
	return true, nil
}
