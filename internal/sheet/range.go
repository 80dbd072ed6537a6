package sheet

import (
	"regexp"
	"strings"
)

// RangeValue pairs a resolved cell value with the position it came from, so
// callers that walk two ranges in parallel can align entries by position
// instead of trusting raw index correspondence.
type RangeValue struct {
	Pos   Position
	Value string
}

// maxColumnScanRows bounds full-column scans. A performance guard, not a
// semantic limit.
const maxColumnScanRows = 1000

var (
	crossSheetPattern = regexp.MustCompile(`^'([^']+)'!(.+)$`)
	columnOnlyPattern = regexp.MustCompile(`^[A-Z]+$`)
)

// ResolveRange resolves a textual range expression against a sheet's cells,
// returning values row-major (rows outer, columns inner).
//
// Supported shapes, in priority order: a cross-sheet prefix 'Name'!rest
// (unknown sheet resolves as an empty mapping, not an error), a full-column
// span like C:C, a rectangle like A1:B3, and a comma list of addresses.
//
// Full-column spans compact out absent cells; rectangles and comma lists emit
// an empty-string placeholder for them. Callers zipping two resolved ranges
// must account for the compaction (see formula.SUMIF).
func ResolveRange(expr string, cells CellMap, sheets map[string]CellMap) []RangeValue {
	expr = strings.TrimSpace(expr)
	if match := crossSheetPattern.FindStringSubmatch(expr); match != nil {
		target := CellMap{}
		if sheets != nil {
			if named, ok := sheets[match[1]]; ok {
				target = named
			}
		}
		return ResolveRange(match[2], target, sheets)
	}

	if start, end, ok := strings.Cut(expr, ":"); ok {
		start = strings.TrimSpace(start)
		end = strings.TrimSpace(end)
		if columnOnlyPattern.MatchString(start) && columnOnlyPattern.MatchString(end) {
			return resolveColumns(start, end, cells)
		}
		return resolveRect(start, end, cells)
	}

	var values []RangeValue
	for _, ref := range strings.Split(expr, ",") {
		pos, err := ParseAddress(strings.TrimSpace(ref))
		if err != nil {
			continue
		}
		values = append(values, RangeValue{Pos: pos, Value: cells[Key(pos)].Value})
	}
	return values
}

func resolveColumns(start, end string, cells CellMap) []RangeValue {
	startCol := columnIndex(start)
	endCol := columnIndex(end)
	var values []RangeValue
	for row := 1; row <= maxColumnScanRows; row++ {
		for col := startCol; col <= endCol; col++ {
			pos := Position{Row: row, Col: col}
			if cell, ok := cells[Key(pos)]; ok && cell.Value != "" {
				values = append(values, RangeValue{Pos: pos, Value: cell.Value})
			}
		}
	}
	return values
}

func resolveRect(start, end string, cells CellMap) []RangeValue {
	startPos, err := ParseAddress(start)
	if err != nil {
		return nil
	}
	endPos, err := ParseAddress(end)
	if err != nil {
		return nil
	}
	var values []RangeValue
	for row := startPos.Row; row <= endPos.Row; row++ {
		for col := startPos.Col; col <= endPos.Col; col++ {
			pos := Position{Row: row, Col: col}
			values = append(values, RangeValue{Pos: pos, Value: cells[Key(pos)].Value})
		}
	}
	return values
}

func columnIndex(letters string) int {
	col := 0
	for _, ch := range letters {
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1
}

// Strings flattens resolved range values into their raw text.
func Strings(values []RangeValue) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Value
	}
	return out
}
