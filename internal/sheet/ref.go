package sheet

import (
	"fmt"
	"regexp"
	"strconv"
)

var addressPattern = regexp.MustCompile(`^([A-Z]+)([0-9]+)$`)

// ParseAddress decodes a textual cell address like "A1" or "AA12" into a
// Position. Column letters are base-26 with no zero digit (A=1..Z=26, AA=27).
func ParseAddress(ref string) (Position, error) {
	match := addressPattern.FindStringSubmatch(ref)
	if match == nil {
		return Position{}, fmt.Errorf("invalid cell reference: %s", ref)
	}
	col := 0
	for _, ch := range match[1] {
		col = col*26 + int(ch-'A') + 1
	}
	col--
	row, err := strconv.Atoi(match[2])
	if err != nil {
		return Position{}, fmt.Errorf("invalid cell reference: %s", ref)
	}
	return Position{Row: row - 1, Col: col}, nil
}

// FormatAddress renders a Position back to its textual form.
func FormatAddress(pos Position) string {
	return ColumnLabel(pos.Col) + strconv.Itoa(pos.Row+1)
}

// ColumnLabel converts a zero-based column index to its letter form
// (0 -> "A", 25 -> "Z", 26 -> "AA").
func ColumnLabel(col int) string {
	label := ""
	for col >= 0 {
		label = string(rune('A'+col%26)) + label
		col = col/26 - 1
	}
	return label
}
