package formula

import (
	"testing"

	"sheetpilot/engine/internal/sheet"
)

func cellsFrom(entries map[string]string) sheet.CellMap {
	cells := sheet.CellMap{}
	for ref, value := range entries {
		pos, err := sheet.ParseAddress(ref)
		if err != nil {
			panic(err)
		}
		cells[sheet.Key(pos)] = sheet.Cell{Value: value}
	}
	return cells
}

func TestEvaluateSumSkipsBlanks(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "10", "A3": "5"})
	got := Evaluate("=SUM(A1:A3)", cells, "", nil)
	if got != 15.0 {
		t.Fatalf("SUM(A1:A3) = %v, want 15", got)
	}
}

func TestEvaluateSumFullColumn(t *testing.T) {
	cells := cellsFrom(map[string]string{"B2": "1", "B5": "2", "B9": "4"})
	got := Evaluate("=SUM(B:B)", cells, "", nil)
	if got != 7.0 {
		t.Fatalf("SUM(B:B) = %v, want 7", got)
	}
}

func TestEvaluateAverage(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "4", "A2": "6"})
	if got := Evaluate("=AVERAGE(A1:A2)", cells, "", nil); got != 5.0 {
		t.Fatalf("AVERAGE = %v, want 5", got)
	}
}

func TestEvaluateAverageOfBlanksIsZero(t *testing.T) {
	got := Evaluate("=AVERAGE(A1:A3)", sheet.CellMap{}, "", nil)
	if got != 0.0 {
		t.Fatalf("AVERAGE of blanks = %v, want 0", got)
	}
}

func TestEvaluateCount(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "x", "A2": "7"})
	if got := Evaluate("=COUNT(A1:A5)", cells, "", nil); got != 2.0 {
		t.Fatalf("COUNT = %v, want 2", got)
	}
}

func TestEvaluateIfBranches(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "10"})
	cases := []struct {
		formula string
		want    any
	}{
		{`=IF(A1>5,"big","small")`, "big"},
		{`=IF(A1<5,"big","small")`, "small"},
		{`=IF(A1>5,1,2)`, 1.0},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.formula, cells, "", nil); got != tc.want {
			t.Fatalf("%s = %v, want %v", tc.formula, got, tc.want)
		}
	}
}

func TestEvaluateSumIfPlain(t *testing.T) {
	cells := cellsFrom(map[string]string{
		"A1": "east", "B1": "10",
		"A2": "west", "B2": "20",
		"A3": "east", "B3": "5",
	})
	got := Evaluate(`=SUMIF(A1:A3,"east",B1:B3)`, cells, "", nil)
	if got != 15.0 {
		t.Fatalf("SUMIF = %v, want 15", got)
	}
}

func TestEvaluateSumIfCrossSheetProduct(t *testing.T) {
	local := cellsFrom(map[string]string{"C2": "Alice"})
	data := cellsFrom(map[string]string{
		"C2": "Alice", "F2": "25000", "H2": "0.05",
		"C3": "Bob", "F3": "10000", "H3": "0.10",
	})
	sheets := map[string]sheet.CellMap{"Employee Data": data}
	got := Evaluate("=SUMIF('Employee Data'!C:C,C2,'Employee Data'!F:F*'Employee Data'!H:H)", local, "", sheets)
	if got != 1250.0 {
		t.Fatalf("commission SUMIF = %v, want 1250", got)
	}
}

func TestEvaluateUniqueReturnsFirstValue(t *testing.T) {
	cells := cellsFrom(map[string]string{"A2": "red", "A3": "blue", "A4": "red"})
	if got := Evaluate("=UNIQUE(A:A)", cells, "", nil); got != "red" {
		t.Fatalf("UNIQUE = %v, want red", got)
	}
}

func TestEvaluateUniqueOfEmptyRange(t *testing.T) {
	if got := Evaluate("=UNIQUE(A1:A5)", sheet.CellMap{}, "", nil); got != "" {
		t.Fatalf("UNIQUE of blanks = %q, want empty string", got)
	}
}

func TestEvaluateVlookupIsNotAvailable(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "key", "B1": "val"})
	got := Evaluate(`=VLOOKUP("key",A1:B2,2,FALSE)`, cells, "", nil)
	if got != NAValue {
		t.Fatalf("VLOOKUP = %v, want %s", got, NAValue)
	}
}

func TestEvaluateIfErrorFallback(t *testing.T) {
	got := Evaluate(`=IFERROR(VLOOKUP("k",A1:B2,2,FALSE),"missing")`, sheet.CellMap{}, "", nil)
	if got != "missing" {
		t.Fatalf("IFERROR fallback = %v, want missing", got)
	}
}

func TestEvaluateIfErrorPassesCleanValue(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "3", "A2": "4"})
	got := Evaluate(`=IFERROR(SUM(A1:A2),"oops")`, cells, "", nil)
	if got != 7.0 {
		t.Fatalf("IFERROR clean = %v, want 7", got)
	}
}

func TestEvaluateExpressionSubstitution(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "2", "B1": "3"})
	cases := []struct {
		formula string
		want    any
	}{
		{"=A1+B1", 5.0},
		{"=A1*B1+1", 7.0},
		{"=A1+C1", 2.0},
		{"=A1>B1", "FALSE"},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.formula, cells, "", nil); got != tc.want {
			t.Fatalf("%s = %v, want %v", tc.formula, got, tc.want)
		}
	}
}

func TestEvaluateExpressionCrossSheet(t *testing.T) {
	sheets := map[string]sheet.CellMap{"Totals": cellsFrom(map[string]string{"A1": "40"})}
	got := Evaluate("='Totals'!A1+2", sheet.CellMap{}, "", sheets)
	if got != 42.0 {
		t.Fatalf("cross-sheet expr = %v, want 42", got)
	}
}

func TestEvaluateMalformedFormulaIsError(t *testing.T) {
	for _, formula := range []string{"=)", "=1+", `=IF(A1)`, "=((1)"} {
		if got := Evaluate(formula, sheet.CellMap{}, "", nil); got != ErrorValue {
			t.Fatalf("%s = %v, want %s", formula, got, ErrorValue)
		}
	}
}

func TestEvaluateDoesNotMutateCells(t *testing.T) {
	cells := cellsFrom(map[string]string{"A1": "1", "A2": "2"})
	first := Evaluate("=SUM(A1:A2)", cells, "", nil)
	second := Evaluate("=SUM(A1:A2)", cells, "", nil)
	if first != second {
		t.Fatalf("evaluation is not stable: %v then %v", first, second)
	}
	if len(cells) != 2 {
		t.Fatalf("evaluation mutated the cell map: %v", cells)
	}
}
