// Package xlsxio moves workbooks between the in-memory sheet store and .xlsx
// files on disk.
package xlsxio

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetpilot/engine/internal/sheet"
)

// Import reads every sheet of an .xlsx file into sparse cell maps. Empty
// cells are dropped; formulas come back with their leading "=" restored.
func Import(path string) ([]*sheet.Sheet, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	var sheets []*sheet.Sheet
	for _, name := range file.GetSheetList() {
		rows, err := file.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		cells := sheet.CellMap{}
		for r, row := range rows {
			for c, value := range row {
				if value == "" {
					continue
				}
				cell := sheet.Cell{Value: value}
				addr, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err == nil {
					if formula, err := file.GetCellFormula(name, addr); err == nil && formula != "" {
						cell.Formula = "=" + formula
					}
				}
				cells[sheet.Key(sheet.Position{Row: r, Col: c})] = cell
			}
		}
		sheets = append(sheets, &sheet.Sheet{Name: name, Cells: cells})
	}
	return sheets, nil
}

// Export writes the given sheets to an .xlsx file, replacing any existing
// file at path.
func Export(path string, sheets []*sheet.Sheet) error {
	file := excelize.NewFile()
	defer file.Close()

	for i, s := range sheets {
		if i == 0 {
			// Reuse the default sheet excelize creates.
			if err := file.SetSheetName("Sheet1", s.Name); err != nil {
				return fmt.Errorf("name sheet %s: %w", s.Name, err)
			}
		} else if _, err := file.NewSheet(s.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.Name, err)
		}
		if err := writeCells(file, s); err != nil {
			return err
		}
	}
	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeCells(file *excelize.File, s *sheet.Sheet) error {
	for key, cell := range s.Cells {
		pos, ok := sheet.ParseKey(key)
		if !ok {
			continue
		}
		addr, err := excelize.CoordinatesToCellName(pos.Col+1, pos.Row+1)
		if err != nil {
			return fmt.Errorf("cell %s on %s: %w", key, s.Name, err)
		}
		// Value first: SetCellStr would clobber a formula set before it.
		if err := file.SetCellStr(s.Name, addr, cell.Value); err != nil {
			return fmt.Errorf("value %s on %s: %w", addr, s.Name, err)
		}
		if cell.Formula != "" {
			if err := file.SetCellFormula(s.Name, addr, strings.TrimPrefix(cell.Formula, "=")); err != nil {
				return fmt.Errorf("formula %s on %s: %w", addr, s.Name, err)
			}
		}
	}
	return nil
}
