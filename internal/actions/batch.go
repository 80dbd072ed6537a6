// Package actions defines the wire shape of model-suggested spreadsheet
// actions and validates batches of them before anything touches a sheet.
package actions

import "encoding/json"

// Response is the decoded model output: a free-text message plus an optional
// batch of actions. The model is prompted to emit exactly this JSON shape.
type Response struct {
	Actions   Actions `json:"actions"`
	Message   string  `json:"message"`
	Recursive bool    `json:"recursive,omitempty"`
}

// Actions groups the three action kinds. None marks an explicit "nothing to
// do" answer, which the fallback path also uses for unparseable output.
type Actions struct {
	None          bool          `json:"none,omitempty"`
	SuggestChange []Change      `json:"suggest_change,omitempty"`
	BulkInsert    []BulkInsert  `json:"bulk_insert,omitempty"`
	CreateSheet   []CreateSheet `json:"create_sheet,omitempty"`
}

// Change is a single-cell or single-range suggestion.
type Change struct {
	Type        string         `json:"type"`
	Sheet       string         `json:"sheet"`
	Range       string         `json:"range,omitempty"`
	Formula     string         `json:"formula,omitempty"`
	Value       string         `json:"value,omitempty"`
	Format      map[string]any `json:"format,omitempty"`
	Description string         `json:"description"`
	Preview     []string       `json:"preview,omitempty"`
}

// BulkInsert fills a rectangle of cells. Data is a JSON-encoded string (a
// string, not an object) mapping 1-based row numbers to value arrays; the
// double encoding keeps the outer response schema flat.
type BulkInsert struct {
	Sheet       string `json:"sheet"`
	StartCell   string `json:"start_cell"`
	EndCell     string `json:"end_cell"`
	Data        string `json:"data"`
	Description string `json:"description"`
}

// CreateSheet requests a new sheet, optionally pre-filled with a header row
// and initial data rows.
type CreateSheet struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Headers     []string   `json:"headers,omitempty"`
	InitialData [][]string `json:"initial_data,omitempty"`
}

// Payload is the validated, flattened shape handed to the applier and the
// client. Validation detail never appears here.
type Payload struct {
	Changes       []Change      `json:"changes"`
	Sheets        []CreateSheet `json:"sheets"`
	BulkInserts   []BulkInsert  `json:"bulk_inserts"`
	Explanation   string        `json:"explanation"`
	Recursive     bool          `json:"recursive"`
	AutoCorrected bool          `json:"auto_corrected,omitempty"`
}

const fallbackMessageLimit = 500

// ParseResponse decodes raw model output. Output that is not valid JSON does
// not fail the turn: it degrades to a no-action response carrying a truncated
// copy of the text as the message.
func ParseResponse(raw string) Response {
	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err == nil {
		return resp
	}
	message := raw
	if len(message) > fallbackMessageLimit {
		message = message[:fallbackMessageLimit] + "..."
	}
	return Response{
		Actions: Actions{None: true},
		Message: message,
	}
}
