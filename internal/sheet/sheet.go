package sheet

import "fmt"

// Position identifies a cell within one sheet. Zero-based.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Format carries optional display attributes for a cell. The engine stores
// and returns these untouched; rendering is the front end's concern.
type Format struct {
	Bold            bool   `json:"bold,omitempty"`
	Italic          bool   `json:"italic,omitempty"`
	Underline       bool   `json:"underline,omitempty"`
	FontSize        int    `json:"fontSize,omitempty"`
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Alignment       string `json:"alignment,omitempty"`
	NumberFormat    string `json:"numberFormat,omitempty"`
}

// Cell holds the computed value and, when the cell was entered as a formula,
// the original source text (sigil included) for re-editing.
type Cell struct {
	Value   string  `json:"value,omitempty"`
	Formula string  `json:"formula,omitempty"`
	Format  *Format `json:"format,omitempty"`
}

// CellMap is a sparse cell store keyed by Key(pos). An absent entry is an
// empty cell.
type CellMap map[string]Cell

// Label is a named rectangular annotation on a sheet.
type Label struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	StartRow    int    `json:"start_row"`
	EndRow      int    `json:"end_row"`
	StartCol    int    `json:"start_col"`
	EndCol      int    `json:"end_col"`
	Color       string `json:"color,omitempty"`
}

// Sheet is one grid of cells. Sheets are peers; cross-sheet formula
// references resolve by name at evaluation time, so renaming a sheet
// silently orphans formulas that referenced the old name.
type Sheet struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Cells  CellMap `json:"cells"`
	Labels []Label `json:"labels,omitempty"`
}

// Key returns the canonical sparse-map key for a position. Every consumer
// of a CellMap (store, resolver, batch applier) goes through this single
// format so writer and reader keys never diverge.
func Key(pos Position) string {
	return fmt.Sprintf("%d-%d", pos.Row, pos.Col)
}

// ParseKey inverts Key. Malformed keys report false rather than panic so
// iterating over externally supplied maps stays safe.
func ParseKey(key string) (Position, bool) {
	var pos Position
	if _, err := fmt.Sscanf(key, "%d-%d", &pos.Row, &pos.Col); err != nil {
		return Position{}, false
	}
	if pos.Row < 0 || pos.Col < 0 {
		return Position{}, false
	}
	return pos, true
}
