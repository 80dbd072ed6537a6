package diff

import "testing"

func TestPreviewMarksAddedAndRemoved(t *testing.T) {
	lines, truncated := Preview("a\nb\nc\n", "a\nx\nc\n")
	if truncated {
		t.Fatalf("unexpected truncation")
	}
	var added, removed, kept int
	for _, line := range lines {
		switch line.Type {
		case LineAdded:
			added++
		case LineRemoved:
			removed++
		case LineContext:
			kept++
		}
	}
	if added != 1 || removed != 1 || kept != 2 {
		t.Fatalf("added=%d removed=%d kept=%d, lines=%+v", added, removed, kept, lines)
	}
}

func TestPreviewTruncatesHugeInput(t *testing.T) {
	big := ""
	for i := 0; i < MaxPreviewLines; i++ {
		big += "line\n"
	}
	if _, truncated := Preview(big, "x\n"); !truncated {
		t.Fatalf("expected truncation")
	}
}

func TestCellChangeSingleLine(t *testing.T) {
	lines := CellChange("B2", "10", "25")
	if len(lines) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Type != LineRemoved || lines[0].Text != "B2: 10" {
		t.Fatalf("removed = %+v", lines[0])
	}
	if lines[1].Type != LineAdded || lines[1].Text != "B2: 25" {
		t.Fatalf("added = %+v", lines[1])
	}
}

func TestCellChangeFromEmptyCell(t *testing.T) {
	lines := CellChange("A1", "", "new")
	if len(lines) != 1 || lines[0].Type != LineAdded {
		t.Fatalf("lines = %+v", lines)
	}
}
