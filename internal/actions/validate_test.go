package actions

import (
	"strings"
	"testing"
)

func TestParseResponseDecodesWellFormedJSON(t *testing.T) {
	raw := `{"message":"done","actions":{"suggest_change":[{"type":"value","sheet":"Sheet1","range":"A1","value":"5","description":"set A1"}]},"recursive":true}`
	resp := ParseResponse(raw)
	if resp.Message != "done" || !resp.Recursive {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Actions.SuggestChange) != 1 || resp.Actions.SuggestChange[0].Sheet != "Sheet1" {
		t.Fatalf("changes = %+v", resp.Actions.SuggestChange)
	}
}

func TestParseResponseFallsBackOnBadJSON(t *testing.T) {
	raw := "Sure! Here is what I would do: " + strings.Repeat("x", 600)
	resp := ParseResponse(raw)
	if !resp.Actions.None {
		t.Fatalf("fallback should carry no actions: %+v", resp.Actions)
	}
	if len(resp.Message) != fallbackMessageLimit+3 || !strings.HasSuffix(resp.Message, "...") {
		t.Fatalf("fallback message not truncated: len=%d", len(resp.Message))
	}
}

func TestValidateAcceptsCleanBatch(t *testing.T) {
	resp := Response{
		Message: "updated the total",
		Actions: Actions{
			SuggestChange: []Change{{Type: "formula", Sheet: "Sheet1", Range: "B1", Formula: "=SUM(A:A)", Description: "total column A"}},
		},
	}
	payload, errs := Validate(resp, []string{"Sheet1"})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if payload.Explanation != "updated the total" || len(payload.Changes) != 1 {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.Sheets == nil || payload.BulkInserts == nil {
		t.Fatalf("absent action kinds must normalize to empty slices, not nil")
	}
}

func TestValidateFlagsMisdirectedSheetCreation(t *testing.T) {
	cases := []Change{
		{Type: "create_sheet", Sheet: "Budget", Description: "add a budget sheet"},
		{Type: "value", Sheet: "Sheet1", Description: "create a new sheet for budgets"},
		{Type: "value", Sheet: "Ghost", Description: "fill totals"},
	}
	for _, change := range cases {
		resp := Response{Actions: Actions{SuggestChange: []Change{change}}}
		_, errs := Validate(resp, []string{"Sheet1"})
		if len(errs) != 1 {
			t.Fatalf("change %+v: errs = %v, want one aggregate error", change, errs)
		}
		if !strings.Contains(errs[0], "create_sheet") {
			t.Fatalf("error should point at create_sheet: %s", errs[0])
		}
	}
}

func TestValidateUnknownSheetNotDoubleReported(t *testing.T) {
	resp := Response{Actions: Actions{
		SuggestChange: []Change{{Type: "value", Sheet: "Ghost", Value: "x", Description: "fill"}},
	}}
	_, errs := Validate(resp, []string{"Sheet1"})
	if len(errs) != 1 {
		t.Fatalf("unknown sheet should yield exactly one error, got %v", errs)
	}
}

func TestValidateAllowsSheetCreatedInSameBatch(t *testing.T) {
	resp := Response{Actions: Actions{
		CreateSheet:   []CreateSheet{{Name: "Budget", Description: "budget sheet"}},
		SuggestChange: []Change{{Type: "value", Sheet: "Budget", Value: "100", Description: "seed total"}},
	}}
	if _, errs := Validate(resp, []string{"Sheet1"}); len(errs) != 0 {
		t.Fatalf("same-batch creation should validate, got %v", errs)
	}
}

func TestValidateRejectsArrayAndOversizedValues(t *testing.T) {
	resp := Response{Actions: Actions{SuggestChange: []Change{
		{Type: "value", Sheet: "Sheet1", Value: `[["a","b"]]`, Description: "matrix"},
		{Type: "value", Sheet: "Sheet1", Value: strings.Repeat("v", 1001), Description: "huge"},
	}}}
	_, errs := Validate(resp, []string{"Sheet1"})
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want array and size errors", errs)
	}
	if !strings.Contains(errs[0], "bulk_insert") || !strings.Contains(errs[1], "bulk_insert") {
		t.Fatalf("errors should redirect to bulk_insert: %v", errs)
	}
}

func TestValidateRejectsBulkInsertWithoutSheet(t *testing.T) {
	resp := Response{Actions: Actions{BulkInsert: []BulkInsert{{
		StartCell: "A1", EndCell: "A1", Data: `{"1":["x"]}`, Description: "load",
	}}}}
	_, errs := Validate(resp, []string{"Sheet1"})
	if len(errs) != 1 || !strings.Contains(errs[0], `sheet ""`) {
		t.Fatalf("missing sheet name should be reported, got %v", errs)
	}
}

func TestValidateRejectsMalformedBulkData(t *testing.T) {
	resp := Response{Actions: Actions{BulkInsert: []BulkInsert{{
		Sheet: "Sheet1", StartCell: "A1", EndCell: "B2", Data: "not json", Description: "load",
	}}}}
	_, errs := Validate(resp, []string{"Sheet1"})
	if len(errs) != 1 || !strings.Contains(errs[0], "invalid JSON data") {
		t.Fatalf("errs = %v", errs)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	resp := Response{Actions: Actions{
		SuggestChange: []Change{
			{Type: "value", Sheet: "Ghost", Value: "x", Description: "fill"},
			{Type: "value", Sheet: "Sheet1", Value: strings.Repeat("v", 1500), Description: "huge"},
		},
		BulkInsert: []BulkInsert{{Sheet: "Missing", StartCell: "A1", EndCell: "A1", Data: `{"1":["x"]}`, Description: "load"}},
	}}
	_, errs := Validate(resp, []string{"Sheet1"})
	if len(errs) != 3 {
		t.Fatalf("expected every failure reported, got %v", errs)
	}
}

func TestCheckBulkRectangleEndBeforeStart(t *testing.T) {
	errs := CheckBulkRectangle("B3", "A1", map[string][]string{"1": {"x"}})
	if len(errs) != 1 || !strings.Contains(errs[0], "end cell must be after start cell") {
		t.Fatalf("errs = %v", errs)
	}
}

func TestCheckBulkRectangleUnparsableAddress(t *testing.T) {
	errs := CheckBulkRectangle("??", "B2", nil)
	if len(errs) != 1 || !strings.Contains(errs[0], "cannot parse") {
		t.Fatalf("errs = %v", errs)
	}
}

func TestCheckBulkRectangleReportsEachProblem(t *testing.T) {
	data := map[string][]string{
		"1": {"a", "b"},
		"2": {"only-one"},
		"4": {"c", "d"},
	}
	errs := CheckBulkRectangle("A1", "B3", data)
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want out-of-range row and column mismatch", errs)
	}
	joined := strings.Join(errs, "\n")
	if !strings.Contains(joined, "row 4 is outside") || !strings.Contains(joined, "row 2 has 1 columns") {
		t.Fatalf("errs = %v", errs)
	}
}

func TestCheckBulkRectangleMissingRows(t *testing.T) {
	data := map[string][]string{"1": {"a", "b"}}
	errs := CheckBulkRectangle("A1", "B3", data)
	if len(errs) != 1 || !strings.Contains(errs[0], "expects 3 rows") {
		t.Fatalf("errs = %v", errs)
	}
}

func TestCheckBulkRectangleExactFill(t *testing.T) {
	data := map[string][]string{
		"1": {"a", "b"},
		"2": {"c", "d"},
		"3": {"e", "f"},
	}
	if errs := CheckBulkRectangle("A1", "B3", data); len(errs) != 0 {
		t.Fatalf("exact fill should pass, got %v", errs)
	}
}
