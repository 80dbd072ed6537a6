package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sheetpilot/engine/internal/errinfo"
	"sheetpilot/engine/internal/formula"
	"sheetpilot/engine/internal/sheet"
)

func (e *Engine) SheetCreate(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	created, err := e.store.Create(req.Name)
	if err != nil {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, err.Error())
	}
	e.logger.Info("sheet.create", "sheet", created.Name, "sheet_id", created.ID)
	return map[string]any{"sheet_id": created.ID, "name": created.Name}, nil
}

func (e *Engine) SheetList(ctx context.Context, _ json.RawMessage) (any, *errinfo.ErrorInfo) {
	names := e.store.Names()
	e.logger.Debug("sheet.list", "count", len(names))
	return map[string]any{"sheets": names}, nil
}

func (e *Engine) SheetRename(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Name    string `json:"name"`
		NewName string `json:"new_name"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Name == "" || strings.TrimSpace(req.NewName) == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	if err := e.store.Rename(req.Name, req.NewName); err != nil {
		if errors.Is(err, sheet.ErrSheetNotFound) {
			return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Name)
		}
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, err.Error())
	}
	e.logger.Info("sheet.rename", "from", req.Name, "to", req.NewName)
	return map[string]any{"name": req.NewName}, nil
}

func (e *Engine) SheetDelete(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Name == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	if err := e.store.Delete(req.Name); err != nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Name)
	}
	e.logger.Info("sheet.delete", "sheet", req.Name)
	return map[string]any{"deleted": true}, nil
}

// CellSet writes one cell. A value starting with "=" is treated as a formula:
// the evaluated result becomes the cell value and the source text is kept for
// re-editing. Setting an empty value clears the cell.
func (e *Engine) CellSet(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Sheet  string        `json:"sheet"`
		Row    int           `json:"row"`
		Col    int           `json:"col"`
		Value  string        `json:"value"`
		Format *sheet.Format `json:"format,omitempty"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Sheet == "" || req.Row < 0 || req.Col < 0 {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	cell := sheet.Cell{Value: req.Value, Format: req.Format}
	if strings.HasPrefix(req.Value, "=") {
		target, err := e.store.Get(req.Sheet)
		if err != nil {
			return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Sheet)
		}
		result := formula.Evaluate(req.Value, target.Cells, req.Sheet, e.store.CellMaps())
		cell.Formula = req.Value
		cell.Value = formula.Display(result)
	}
	pos := sheet.Position{Row: req.Row, Col: req.Col}
	if err := e.store.SetCell(req.Sheet, pos, cell); err != nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Sheet)
	}
	e.logger.Debug("cell.set", "sheet", req.Sheet, "cell", sheet.FormatAddress(pos), "formula", cell.Formula != "")
	return map[string]any{"value": cell.Value, "formula": cell.Formula}, nil
}

func (e *Engine) CellGet(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Sheet string `json:"sheet"`
		Row   int    `json:"row"`
		Col   int    `json:"col"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Sheet == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	cell, err := e.store.Cell(req.Sheet, sheet.Position{Row: req.Row, Col: req.Col})
	if err != nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Sheet)
	}
	return map[string]any{"value": cell.Value, "formula": cell.Formula, "format": cell.Format}, nil
}

// RangeGet resolves a range expression against one sheet and returns each
// value with its position, the same shape the evaluator consumes.
func (e *Engine) RangeGet(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Sheet string `json:"sheet"`
		Range string `json:"range"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Sheet == "" || req.Range == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	target, err := e.store.Get(req.Sheet)
	if err != nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Sheet)
	}
	values := sheet.ResolveRange(req.Range, target.Cells, e.store.CellMaps())
	out := make([]map[string]any, 0, len(values))
	for _, value := range values {
		out = append(out, map[string]any{
			"row":   value.Pos.Row,
			"col":   value.Pos.Col,
			"value": value.Value,
		})
	}
	return map[string]any{"values": out}, nil
}

func (e *Engine) FormulaEvaluate(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Sheet   string `json:"sheet"`
		Formula string `json:"formula"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Formula == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseFormula, "invalid params")
	}
	maps := e.store.CellMaps()
	cells := maps[req.Sheet]
	if req.Sheet != "" && cells == nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseFormula, req.Sheet)
	}
	result := formula.Evaluate(req.Formula, cells, req.Sheet, maps)
	display := formula.Display(result)
	e.logger.Debug("formula.evaluate", "sheet", req.Sheet, "result", display)
	return map[string]any{"result": result, "display": display}, nil
}

func (e *Engine) LabelAdd(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Sheet string      `json:"sheet"`
		Label sheet.Label `json:"label"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Sheet == "" || req.Label.Name == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	if req.Label.ID == "" {
		req.Label.ID = fmt.Sprintf("label-%d", time.Now().UnixNano())
	}
	if err := e.store.AddLabel(req.Sheet, req.Label); err != nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Sheet)
	}
	e.logger.Info("label.add", "sheet", req.Sheet, "label", req.Label.Name)
	return map[string]any{"label_id": req.Label.ID}, nil
}

func (e *Engine) LabelList(ctx context.Context, params json.RawMessage) (any, *errinfo.ErrorInfo) {
	var req struct {
		Sheet string `json:"sheet"`
	}
	if err := json.Unmarshal(params, &req); err != nil || req.Sheet == "" {
		return nil, errinfo.ValidationFailed(errinfo.PhaseSheet, "invalid params")
	}
	target, err := e.store.Get(req.Sheet)
	if err != nil {
		return nil, errinfo.SheetNotFound(errinfo.PhaseSheet, req.Sheet)
	}
	labels := target.Labels
	if labels == nil {
		labels = []sheet.Label{}
	}
	return map[string]any{"labels": labels}, nil
}
