package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sheetpilot/engine/internal/actions"
	"sheetpilot/engine/internal/assist"
	"sheetpilot/engine/internal/diff"
	"sheetpilot/engine/internal/errinfo"
	"sheetpilot/engine/internal/formula"
	"sheetpilot/engine/internal/llm"
	"sheetpilot/engine/internal/sheet"
)

// generateFunc adapts the engine's provider client, with key and model bound,
// to the orchestrator's client interface.
type generateFunc func(ctx context.Context, systemInstruction string, messages []llm.Message) (string, error)

func (f generateFunc) Generate(ctx context.Context, systemInstruction string, messages []llm.Message) (string, error) {
	return f(ctx, systemInstruction, messages)
}

func (e *Engine) AssistSendMessage(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, "invalid params")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, "empty message")
	}
	current, err := e.settings.Load()
	if err != nil {
		return nil, errinfo.FileReadFailed(errinfo.PhaseAssist, err.Error())
	}
	key, err := e.secrets.GetGeminiKey()
	if err != nil {
		return nil, errinfo.FileReadFailed(errinfo.PhaseAssist, err.Error())
	}
	if key == "" {
		return nil, errinfo.ProviderNotConfigured(errinfo.PhaseAssist)
	}

	e.refreshSheetContexts()

	client := generateFunc(func(ctx context.Context, instruction string, messages []llm.Message) (string, error) {
		return e.client.GenerateActions(ctx, key, current.ModelID, instruction, messages)
	})
	orch := assist.NewOrchestrator(client, e.logger)
	payload, runErr := orch.Run(ctx, e.session, req.Text, e.store.Names())
	if runErr != nil {
		info := mapLLMError(errinfo.PhaseAssist, runErr)
		info.ModelID = current.ModelID
		e.logger.Error("assist.send_failed", "model_id", current.ModelID, "error", runErr.Error())
		return nil, info
	}

	e.session.AddMessage(llm.RoleUser, req.Text)
	e.session.AddMessage(llm.RoleAssistant, payload.Explanation)
	e.attachPreviews(&payload)

	e.logger.Info("assist.send",
		"model_id", current.ModelID,
		"changes", len(payload.Changes),
		"sheets", len(payload.Sheets),
		"bulk_inserts", len(payload.BulkInserts),
		"auto_corrected", payload.AutoCorrected)
	return payload, nil
}

// AssistApplyActions applies a payload the user accepted: new sheets first so
// changes and bulk inserts can target them.
func (e *Engine) AssistApplyActions(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var payload actions.Payload
	if err := json.Unmarshal(params, &payload); err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, "invalid params")
	}
	applied := map[string]int{"sheets": 0, "changes": 0, "cells": 0}

	for _, cs := range payload.Sheets {
		if _, err := e.store.Create(cs.Name); err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, err.Error())
		}
		for col, header := range cs.Headers {
			if err := e.setValue(cs.Name, sheet.Position{Row: 0, Col: col}, header); err != nil {
				return nil, err
			}
			applied["cells"]++
		}
		for r, row := range cs.InitialData {
			for c, value := range row {
				if err := e.setValue(cs.Name, sheet.Position{Row: r + 1, Col: c}, value); err != nil {
					return nil, err
				}
				applied["cells"]++
			}
		}
		applied["sheets"]++
	}

	for _, change := range payload.Changes {
		if change.Range == "" {
			continue
		}
		pos, err := sheet.ParseAddress(firstAddress(change.Range))
		if err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, fmt.Sprintf("bad range %q in change %q", change.Range, change.Description))
		}
		value := change.Value
		if change.Formula != "" {
			value = change.Formula
		}
		if err := e.setValue(change.Sheet, pos, value); err != nil {
			return nil, err
		}
		applied["changes"]++
	}

	for _, bulk := range payload.BulkInserts {
		var data map[string][]string
		if err := json.Unmarshal([]byte(bulk.Data), &data); err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, fmt.Sprintf("bad bulk data in %q", bulk.Description))
		}
		start, err := sheet.ParseAddress(bulk.StartCell)
		if err != nil {
			return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, fmt.Sprintf("bad start cell %q", bulk.StartCell))
		}
		for key, row := range data {
			var rowNum int
			if _, err := fmt.Sscanf(key, "%d", &rowNum); err != nil {
				continue
			}
			for c, value := range row {
				pos := sheet.Position{Row: rowNum - 1, Col: start.Col + c}
				if err := e.setValue(bulk.Sheet, pos, value); err != nil {
					return nil, err
				}
				applied["cells"]++
			}
		}
	}

	e.logger.Info("assist.apply", "sheets", applied["sheets"], "changes", applied["changes"], "cells", applied["cells"])
	if e.notify != nil {
		e.notify("WorkbookChanged", applied)
	}
	return applied, nil
}

// setValue writes one cell, evaluating formula text the same way CellSet does.
func (e *Engine) setValue(sheetName string, pos sheet.Position, value string) *errinfo.ErrorInfo {
	cell := sheet.Cell{Value: value}
	if strings.HasPrefix(value, "=") {
		target, err := e.store.Get(sheetName)
		if err != nil {
			return errinfo.SheetNotFound(errinfo.PhaseAssist, sheetName)
		}
		result := formula.Evaluate(value, target.Cells, sheetName, e.store.CellMaps())
		cell.Formula = value
		cell.Value = formula.Display(result)
	}
	if err := e.store.SetCell(sheetName, pos, cell); err != nil {
		return errinfo.SheetNotFound(errinfo.PhaseAssist, sheetName)
	}
	return nil
}

func (e *Engine) AssistGetConversation(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	history := e.session.History()
	if history == nil {
		history = []assist.HistoryEntry{}
	}
	return map[string]any{"messages": history}, nil
}

func (e *Engine) AssistClearConversation(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	e.session.ClearHistory()
	return map[string]any{"cleared": true}, nil
}

func (e *Engine) ContextAddText(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Name == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, "invalid params")
	}
	item := e.session.AddTextContext(req.Name, req.Content)
	return map[string]any{"context_id": item.ID}, nil
}

func (e *Engine) ContextAddSheet(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Sheet string `json:"sheet"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Sheet == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, "invalid params")
	}
	target, err := e.store.Get(req.Sheet)
	if err != nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseAssist, req.Sheet)
	}
	item := e.session.AddSheetContext(req.Sheet, formatSheetSnapshot(target))
	return map[string]any{"context_id": item.ID}, nil
}

func (e *Engine) ContextList(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	items := e.session.Contexts()
	if items == nil {
		items = []assist.ContextItem{}
	}
	return map[string]any{"context_items": items}, nil
}

func (e *Engine) ContextRemove(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		ContextID string `json:"context_id"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.ContextID == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, "invalid params")
	}
	if !e.session.RemoveContext(req.ContextID) {
		return nil, errinfo.ValidationFailed(errinfo.PhaseAssist, "unknown context id: "+req.ContextID)
	}
	return map[string]any{"removed": true}, nil
}

// refreshSheetContexts re-snapshots every pinned sheet that still exists, so
// the model always sees current cell data.
func (e *Engine) refreshSheetContexts() {
	for _, item := range e.session.Contexts() {
		if item.Type != assist.ContextTypeSheet {
			continue
		}
		target, err := e.store.Get(item.Name)
		if err != nil {
			continue
		}
		e.session.AddSheetContext(item.Name, formatSheetSnapshot(target))
	}
}

// attachPreviews fills Change.Preview with before/after lines for single-cell
// suggestions targeting known sheets.
func (e *Engine) attachPreviews(payload *actions.Payload) {
	for i, change := range payload.Changes {
		if change.Range == "" {
			continue
		}
		address := firstAddress(change.Range)
		pos, err := sheet.ParseAddress(address)
		if err != nil {
			continue
		}
		current, err := e.store.Cell(change.Sheet, pos)
		if err != nil {
			continue
		}
		proposed := change.Value
		if change.Formula != "" {
			proposed = change.Formula
		}
		var preview []string
		for _, line := range diff.CellChange(address, current.Value, proposed) {
			switch line.Type {
			case diff.LineAdded:
				preview = append(preview, "+ "+line.Text)
			case diff.LineRemoved:
				preview = append(preview, "- "+line.Text)
			default:
				preview = append(preview, "  "+line.Text)
			}
		}
		payload.Changes[i].Preview = preview
	}
}

func firstAddress(rangeExpr string) string {
	address := rangeExpr
	if start, _, ok := strings.Cut(address, ":"); ok {
		address = start
	}
	return strings.TrimSpace(address)
}

const snapshotPreviewRows = 10
const snapshotPreviewCols = 10

// formatSheetSnapshot renders a sheet as the compact JSON block pinned into
// the model context: dimensions, header row, and a bounded preview grid.
func formatSheetSnapshot(s *sheet.Sheet) string {
	maxRow, maxCol := -1, -1
	for key := range s.Cells {
		pos, ok := sheet.ParseKey(key)
		if !ok {
			continue
		}
		if pos.Row > maxRow {
			maxRow = pos.Row
		}
		if pos.Col > maxCol {
			maxCol = pos.Col
		}
	}
	if maxRow < 0 {
		out, _ := json.Marshal(map[string]any{"sheet_name": s.Name, "status": "empty"})
		return string(out)
	}

	previewRows := min(maxRow+1, snapshotPreviewRows)
	previewCols := min(maxCol+1, snapshotPreviewCols)
	grid := make([][]string, previewRows)
	for r := range grid {
		grid[r] = make([]string, previewCols)
		for c := range grid[r] {
			grid[r][c] = s.Cells[sheet.Key(sheet.Position{Row: r, Col: c})].Value
		}
	}
	snapshot := map[string]any{
		"sheet_name": s.Name,
		"dimensions": map[string]int{
			"total_rows":      maxRow + 1,
			"total_columns":   maxCol + 1,
			"preview_rows":    previewRows,
			"preview_columns": previewCols,
		},
		"headers": grid[0],
		"rows":    grid,
	}
	out, _ := json.Marshal(snapshot)
	return string(out)
}
