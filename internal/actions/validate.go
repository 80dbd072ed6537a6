package actions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sheetpilot/engine/internal/sheet"
)

const maxCellValueLen = 1000

// Validate checks a decoded model response against the sheets the workbook
// already has. It returns the normalized payload and every problem found; an
// empty error slice means the batch is safe to apply. All checks run so the
// model gets the complete picture in one correction round.
func Validate(resp Response, knownSheets []string) (Payload, []string) {
	known := make(map[string]bool, len(knownSheets))
	for _, name := range knownSheets {
		known[name] = true
	}
	toCreate := make(map[string]bool, len(resp.Actions.CreateSheet))
	for _, cs := range resp.Actions.CreateSheet {
		toCreate[cs.Name] = true
	}
	resolvable := func(name string) bool { return known[name] || toCreate[name] }

	var errs []string

	// Misdirected creation first. A suggest_change that tries to create a
	// sheet, or targets a sheet that neither exists nor is created in this
	// batch, gets one aggregate error; flagged entries are skipped by the
	// per-change checks so unknown sheets are not double-reported.
	misdirected := make(map[int]bool)
	var misdirectedDetail []string
	for i, change := range resp.Actions.SuggestChange {
		if isMisdirectedCreation(change, resolvable) {
			misdirected[i] = true
			misdirectedDetail = append(misdirectedDetail,
				fmt.Sprintf("%q (trying to use sheet %q)", change.Description, change.Sheet))
		}
	}
	if len(misdirectedDetail) > 0 {
		errs = append(errs, fmt.Sprintf(
			"%d suggest_change action(s) try to create or reference non-existent sheets: %s. "+
				"Sheet creation must use the create_sheet action, and new sheets must be created before suggest_change targets them. "+
				"Available sheets: %s.",
			len(misdirectedDetail), strings.Join(misdirectedDetail, ", "), strings.Join(knownSheets, ", ")))
	}

	for i, change := range resp.Actions.SuggestChange {
		if misdirected[i] {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(change.Value), "[[") {
			errs = append(errs, fmt.Sprintf(
				"invalid value in change %q: a JSON array is not a single cell value; use bulk_insert for bulk data",
				change.Description))
		}
		if len(change.Value) > maxCellValueLen {
			errs = append(errs, fmt.Sprintf(
				"value too large in change %q: single cell values must stay under %d characters; use bulk_insert for bulk data",
				change.Description, maxCellValueLen))
		}
	}

	for _, bulk := range resp.Actions.BulkInsert {
		if !resolvable(bulk.Sheet) {
			errs = append(errs, fmt.Sprintf(
				"bulk insert %q: sheet %q does not exist. Available sheets: %s",
				bulk.Description, bulk.Sheet, strings.Join(knownSheets, ", ")))
		}
		var data map[string][]string
		if err := json.Unmarshal([]byte(bulk.Data), &data); err != nil {
			errs = append(errs, fmt.Sprintf(
				"bulk insert %q: invalid JSON data; expected an object with row numbers as keys and arrays as values",
				bulk.Description))
			continue
		}
		for _, msg := range CheckBulkRectangle(bulk.StartCell, bulk.EndCell, data) {
			errs = append(errs, fmt.Sprintf("bulk insert %q: %s", bulk.Description, msg))
		}
	}

	if len(errs) > 0 {
		return Payload{
			Changes:     []Change{},
			Sheets:      []CreateSheet{},
			BulkInserts: []BulkInsert{},
			Explanation: "Validation errors found:\n" + strings.Join(errs, "\n") +
				"\n\nPlease correct your response and try again.",
		}, errs
	}

	return Payload{
		Changes:     emptyIfNil(resp.Actions.SuggestChange),
		Sheets:      emptyIfNil(resp.Actions.CreateSheet),
		BulkInserts: emptyIfNil(resp.Actions.BulkInsert),
		Explanation: resp.Message,
		Recursive:   resp.Recursive,
	}, nil
}

func isMisdirectedCreation(change Change, resolvable func(string) bool) bool {
	if change.Type == "create_sheet" {
		return true
	}
	desc := strings.ToLower(change.Description)
	if strings.Contains(desc, "create") && strings.Contains(desc, "sheet") {
		return true
	}
	if strings.Contains(desc, "new sheet") {
		return true
	}
	return !resolvable(change.Sheet)
}

// CheckBulkRectangle verifies that row-keyed bulk data fills the rectangle
// [startCell, endCell] exactly: row keys 1-based and in range, every row as
// wide as the rectangle, no rows missing. Address parse failures come back as
// a single error.
func CheckBulkRectangle(startCell, endCell string, data map[string][]string) []string {
	var errs []string
	start, err := sheet.ParseAddress(startCell)
	if err != nil {
		return []string{fmt.Sprintf("cannot parse cell reference %q: %v", startCell, err)}
	}
	end, err := sheet.ParseAddress(endCell)
	if err != nil {
		return []string{fmt.Sprintf("cannot parse cell reference %q: %v", endCell, err)}
	}

	expectedCols := end.Col - start.Col + 1
	expectedRows := end.Row - start.Row + 1
	if expectedCols <= 0 || expectedRows <= 0 {
		return []string{fmt.Sprintf("invalid cell range %s to %s: end cell must be after start cell", startCell, endCell)}
	}

	minRow := start.Row + 1
	maxRow := end.Row + 1

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})

	for _, key := range keys {
		rowNum, err := strconv.Atoi(key)
		if err != nil || rowNum < minRow || rowNum > maxRow {
			errs = append(errs, fmt.Sprintf("row %s is outside the specified range; expected rows %d to %d", key, minRow, maxRow))
		}
	}
	for _, key := range keys {
		if got := len(data[key]); got != expectedCols {
			errs = append(errs, fmt.Sprintf("row %s has %d columns, but %s to %s expects %d columns", key, got, startCell, endCell, expectedCols))
		}
	}
	if len(data) < expectedRows {
		errs = append(errs, fmt.Sprintf("only %d rows provided, but the range expects %d rows (%d to %d)", len(data), expectedRows, minRow, maxRow))
	}
	return errs
}

func emptyIfNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
