// Package diff renders previews of suggested cell changes so the client can
// show what a suggestion would do before the user accepts it.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Line is one row of a change preview.
type Line struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
}

const (
	LineContext = "context"
	LineAdded   = "added"
	LineRemoved = "removed"
)

// MaxPreviewLines caps preview size; cell regions beyond it are summarized
// instead of diffed.
const MaxPreviewLines = 2000

// Preview diffs two newline-joined renderings of a cell region, line by line.
// The bool reports whether the region was too large to preview.
func Preview(current, proposed string) ([]Line, bool) {
	if lineCount(current)+lineCount(proposed) > MaxPreviewLines {
		return nil, true
	}
	dmp := diffmatchpatch.New()
	currentChars, proposedChars, lineArray := dmp.DiffLinesToChars(current, proposed)
	diffs := dmp.DiffMain(currentChars, proposedChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []Line
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		chunk := strings.Split(d.Text, "\n")
		if len(chunk) > 0 && chunk[len(chunk)-1] == "" {
			chunk = chunk[:len(chunk)-1]
		}
		for _, text := range chunk {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, Line{Type: LineContext, Text: text, OldLine: oldLine, NewLine: newLine})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				lines = append(lines, Line{Type: LineRemoved, Text: text, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				lines = append(lines, Line{Type: LineAdded, Text: text, NewLine: newLine})
				newLine++
			}
		}
	}
	return lines, false
}

// CellChange renders a one-cell preview in "ADDR: old -> new" form, with the
// addition/removal lines coming from the proper diff when values are
// multi-line.
func CellChange(address, current, proposed string) []Line {
	if !strings.Contains(current, "\n") && !strings.Contains(proposed, "\n") {
		lines := []Line{}
		if current != "" {
			lines = append(lines, Line{Type: LineRemoved, Text: fmt.Sprintf("%s: %s", address, current), OldLine: 1})
		}
		lines = append(lines, Line{Type: LineAdded, Text: fmt.Sprintf("%s: %s", address, proposed), NewLine: 1})
		return lines
	}
	lines, truncated := Preview(current, proposed)
	if truncated {
		return []Line{{Type: LineContext, Text: fmt.Sprintf("%s: change too large to preview", address)}}
	}
	return lines
}

func lineCount(value string) int {
	if value == "" {
		return 0
	}
	return strings.Count(value, "\n") + 1
}
