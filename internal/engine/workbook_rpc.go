package engine

import (
	"context"
	"encoding/json"
	"path/filepath"

	"sheetpilot/engine/internal/errinfo"
	"sheetpilot/engine/internal/sheet"
	"sheetpilot/engine/internal/xlsxio"
)

// resolveWorkbookPath keeps bare file names inside the engine's workbooks
// directory; absolute and relative paths from the host pass through.
func (e *Engine) resolveWorkbookPath(path string) string {
	if filepath.Base(path) != path {
		return path
	}
	return filepath.Join(e.workbooksDir, path)
}

// WorkbookImport replaces the in-memory workbook with the sheets of an .xlsx
// file. The current workbook is kept untouched if the file cannot be read.
func (e *Engine) WorkbookImport(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Path == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseWorkbook, "invalid params")
	}
	req.Path = e.resolveWorkbookPath(req.Path)
	imported, err := xlsxio.Import(req.Path)
	if err != nil {
		return nil, errinfo.FileReadFailed(errinfo.PhaseWorkbook, err.Error())
	}

	store := sheet.NewStore()
	cells := 0
	for _, s := range imported {
		if _, err := store.Create(s.Name); err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseWorkbook, err.Error())
		}
		for key, cell := range s.Cells {
			pos, ok := sheet.ParseKey(key)
			if !ok {
				continue
			}
			if err := store.SetCell(s.Name, pos, cell); err != nil {
				return nil, errinfo.ValidationFailed(errinfo.PhaseWorkbook, err.Error())
			}
			cells++
		}
	}
	e.store = store
	e.logger.Info("workbook.import", "path", req.Path, "sheets", len(imported), "cells", cells)
	if e.notify != nil {
		e.notify("WorkbookChanged", map[string]any{"sheets": len(imported)})
	}
	return map[string]any{"sheets": store.Names(), "cells": cells}, nil
}

func (e *Engine) WorkbookExport(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Path == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseWorkbook, "invalid params")
	}
	req.Path = e.resolveWorkbookPath(req.Path)
	sheets := e.store.Snapshot()
	if len(sheets) == 0 {
		return nil, errinfo.ValidationFailed(errinfo.PhaseWorkbook, "workbook is empty")
	}
	if err := xlsxio.Export(req.Path, sheets); err != nil {
		return nil, errinfo.FileWriteFailed(errinfo.PhaseWorkbook, err.Error())
	}
	e.logger.Info("workbook.export", "path", req.Path, "sheets", len(sheets))
	return map[string]any{"path": req.Path, "sheets": len(sheets)}, nil
}
