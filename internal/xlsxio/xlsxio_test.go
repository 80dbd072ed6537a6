package xlsxio

import (
	"path/filepath"
	"testing"

	"sheetpilot/engine/internal/sheet"
)

func TestExportImportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	in := []*sheet.Sheet{
		{
			Name: "Data",
			Cells: sheet.CellMap{
				sheet.Key(sheet.Position{Row: 0, Col: 0}): {Value: "name"},
				sheet.Key(sheet.Position{Row: 1, Col: 0}): {Value: "Alice"},
				sheet.Key(sheet.Position{Row: 1, Col: 1}): {Value: "25000"},
				sheet.Key(sheet.Position{Row: 2, Col: 1}): {Value: "25000", Formula: "=SUM(B2:B2)"},
			},
		},
		{
			Name: "Summary",
			Cells: sheet.CellMap{
				sheet.Key(sheet.Position{Row: 0, Col: 0}): {Value: "total"},
			},
		},
	}
	if err := Export(path, in); err != nil {
		t.Fatalf("export: %v", err)
	}

	out, err := Import(path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("sheets = %d, want 2", len(out))
	}
	byName := map[string]*sheet.Sheet{}
	for _, s := range out {
		byName[s.Name] = s
	}
	data, ok := byName["Data"]
	if !ok {
		t.Fatalf("missing Data sheet: %v", out)
	}
	if got := data.Cells[sheet.Key(sheet.Position{Row: 1, Col: 0})].Value; got != "Alice" {
		t.Fatalf("A2 = %q, want Alice", got)
	}
	if got := data.Cells[sheet.Key(sheet.Position{Row: 1, Col: 1})].Value; got != "25000" {
		t.Fatalf("B2 = %q, want 25000", got)
	}
	total := data.Cells[sheet.Key(sheet.Position{Row: 2, Col: 1})]
	if total.Formula != "=SUM(B2:B2)" {
		t.Fatalf("B3 formula = %q, want =SUM(B2:B2)", total.Formula)
	}
	if total.Value != "25000" {
		t.Fatalf("B3 value = %q, want 25000", total.Value)
	}
	if _, ok := byName["Summary"]; !ok {
		t.Fatalf("missing Summary sheet: %v", out)
	}
}

func TestImportMissingFile(t *testing.T) {
	if _, err := Import(filepath.Join(t.TempDir(), "absent.xlsx")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestImportSkipsEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.xlsx")
	in := []*sheet.Sheet{{
		Name: "Sparse",
		Cells: sheet.CellMap{
			sheet.Key(sheet.Position{Row: 4, Col: 2}): {Value: "x"},
		},
	}}
	if err := Export(path, in); err != nil {
		t.Fatalf("export: %v", err)
	}
	out, err := Import(path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(out[0].Cells) != 1 {
		t.Fatalf("cells = %v, want only C5", out[0].Cells)
	}
	if out[0].Cells[sheet.Key(sheet.Position{Row: 4, Col: 2})].Value != "x" {
		t.Fatalf("C5 missing: %v", out[0].Cells)
	}
}
