package formula

import (
	"regexp"
	"strconv"
	"strings"

	"sheetpilot/engine/internal/sheet"
)

// Sentinel strings surfaced as cell values when evaluation fails. They are
// data, not errors: downstream formulas (IFERROR) inspect them as text.
const (
	ErrorValue = "#ERROR!"
	NAValue    = "#N/A"
)

var (
	parenArgs     = regexp.MustCompile(`\(([^)]+)\)`)
	ifArgs        = regexp.MustCompile(`^IF\(([^,]+),([^,]+),([^)]+)\)`)
	sumifArgs     = regexp.MustCompile(`^SUMIF\(([^,]+),([^,]+)(?:,([^)]+))?\)`)
	vlookupArgs   = regexp.MustCompile(`^VLOOKUP\(([^,]+),([^,]+),(\d+),([^)]+)\)`)
	iferrorArgs   = regexp.MustCompile(`^IFERROR\((.+),([^,]+)\)$`)
	crossSheetRef = regexp.MustCompile(`'([^']+)'!([A-Z]+\d+)`)
	bareRef       = regexp.MustCompile(`[A-Z]+\d+`)
	leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)
)

// functions is the closed dispatch set, checked in order. Longer names that
// share a prefix with shorter ones (SUMIF vs SUM, IFERROR vs IF) must come
// first.
var functions []struct {
	name string
	eval func(*evaluator, string) any
}

func init() {
	functions = []struct {
		name string
		eval func(*evaluator, string) any
	}{
		{"SUMIF", (*evaluator).evalSumIf},
		{"SUM", (*evaluator).evalSum},
		{"AVERAGE", (*evaluator).evalAverage},
		{"COUNT", (*evaluator).evalCount},
		{"IFERROR", (*evaluator).evalIfError},
		{"IF", (*evaluator).evalIf},
		{"UNIQUE", (*evaluator).evalUnique},
		{"VLOOKUP", (*evaluator).evalVlookup},
	}
}

// Evaluate computes the result of a formula string such as "=SUM(A1:A5)".
// The leading "=" is optional. cells holds the formula's own sheet; sheets
// maps every sheet name to its cells for cross-sheet references. Results are
// float64 for numeric outcomes and string otherwise; any internal failure
// collapses to the ErrorValue sentinel rather than an error return, because a
// broken formula is still a displayable cell.
func Evaluate(formula string, cells sheet.CellMap, currentSheet string, sheets map[string]sheet.CellMap) (result any) {
	defer func() {
		if recover() != nil {
			result = ErrorValue
		}
	}()
	if cells == nil && currentSheet != "" {
		cells = sheets[currentSheet]
	}
	if cells == nil {
		cells = sheet.CellMap{}
	}
	expr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(formula), "="))
	ev := &evaluator{cells: cells, sheets: sheets}
	for _, fn := range functions {
		if strings.HasPrefix(expr, fn.name+"(") {
			return fn.eval(ev, expr)
		}
	}
	return ev.evalExpression(expr)
}

type evaluator struct {
	cells  sheet.CellMap
	sheets map[string]sheet.CellMap
}

func (ev *evaluator) resolve(rangeExpr string) []sheet.RangeValue {
	return sheet.ResolveRange(strings.TrimSpace(rangeExpr), ev.cells, ev.sheets)
}

func firstParenGroup(expr string) string {
	match := parenArgs.FindStringSubmatch(expr)
	if match == nil {
		return ""
	}
	return match[1]
}

func (ev *evaluator) evalSum(expr string) any {
	total := 0.0
	for _, value := range ev.resolve(firstParenGroup(expr)) {
		if num, ok := parseNumber(value.Value); ok {
			total += num
		}
	}
	return total
}

func (ev *evaluator) evalAverage(expr string) any {
	total, count := 0.0, 0
	for _, value := range ev.resolve(firstParenGroup(expr)) {
		if num, ok := parseNumber(value.Value); ok {
			total += num
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return total / float64(count)
}

func (ev *evaluator) evalCount(expr string) any {
	count := 0
	for _, value := range ev.resolve(firstParenGroup(expr)) {
		if value.Value != "" {
			count++
		}
	}
	return float64(count)
}

func (ev *evaluator) evalIf(expr string) any {
	match := ifArgs.FindStringSubmatch(expr)
	if match == nil {
		return ErrorValue
	}
	cond := ev.evalExpression(strings.TrimSpace(match[1]))
	if truthy(cond) {
		return literalValue(match[2])
	}
	return literalValue(match[3])
}

// evalSumIf supports two shapes. Plain: SUMIF(range, criteria, sum_range)
// sums sum_range where range matches. Product: a sum_range like "F:F*H:H"
// multiplies the two columns row by row before summing. A criteria that is
// itself a cell reference is dereferenced first.
func (ev *evaluator) evalSumIf(expr string) any {
	match := sumifArgs.FindStringSubmatch(expr)
	if match == nil {
		return 0.0
	}
	rangeExpr := strings.TrimSpace(match[1])
	criteria := dequote(strings.TrimSpace(match[2]))
	sumExpr := strings.TrimSpace(match[3])
	if sumExpr == "" {
		sumExpr = rangeExpr
	}

	if pos, err := sheet.ParseAddress(criteria); err == nil {
		criteria = ev.cells[sheet.Key(pos)].Value
	}

	matchValues := ev.resolve(rangeExpr)

	if left, right, ok := strings.Cut(sumExpr, "*"); ok {
		leftByRow := byRow(ev.resolve(left))
		rightByRow := byRow(ev.resolve(right))
		total := 0.0
		for _, value := range matchValues {
			if value.Value != criteria {
				continue
			}
			l, lok := parseNumber(leftByRow[value.Pos.Row])
			r, rok := parseNumber(rightByRow[value.Pos.Row])
			if lok && rok {
				total += l * r
			}
		}
		return total
	}

	sumValues := ev.resolve(sumExpr)
	total := 0.0
	if len(sumValues) == len(matchValues) {
		for i, value := range matchValues {
			if value.Value != criteria {
				continue
			}
			if num, ok := parseNumber(sumValues[i].Value); ok {
				total += num
			}
		}
		return total
	}
	sumByRow := byRow(sumValues)
	for _, value := range matchValues {
		if value.Value != criteria {
			continue
		}
		if num, ok := parseNumber(sumByRow[value.Pos.Row]); ok {
			total += num
		}
	}
	return total
}

// evalUnique returns the first distinct non-empty value of the range, not the
// whole distinct set. Spill semantics would need multi-cell results, which
// cells cannot hold.
func (ev *evaluator) evalUnique(expr string) any {
	for _, value := range ev.resolve(firstParenGroup(expr)) {
		if value.Value != "" {
			return value.Value
		}
	}
	return ""
}

// evalVlookup validates its arguments and resolves the table range, then
// reports NAValue unconditionally. Row matching over resolved tables is a
// known gap; callers wrap lookups in IFERROR meanwhile.
func (ev *evaluator) evalVlookup(expr string) any {
	match := vlookupArgs.FindStringSubmatch(expr)
	if match == nil {
		return ErrorValue
	}
	ev.resolve(match[2])
	return NAValue
}

func (ev *evaluator) evalIfError(expr string) any {
	match := iferrorArgs.FindStringSubmatch(expr)
	if match == nil {
		return ErrorValue
	}
	result := Evaluate("="+strings.TrimSpace(match[1]), ev.cells, "", ev.sheets)
	if text, ok := result.(string); ok {
		if strings.Contains(text, ErrorValue) || strings.Contains(text, NAValue) {
			return literalValue(match[2])
		}
	}
	return result
}

// evalExpression substitutes cell references with their values and hands the
// rest to the infix evaluator. Cross-sheet references go first so the bare
// pattern never sees their address part. Blank and unknown cells substitute
// as 0; non-numeric values are quoted.
func (ev *evaluator) evalExpression(expr string) any {
	substituted := crossSheetRef.ReplaceAllStringFunc(expr, func(ref string) string {
		match := crossSheetRef.FindStringSubmatch(ref)
		cells, ok := ev.sheets[match[1]]
		if !ok {
			return "0"
		}
		return substitution(cells, match[2])
	})
	substituted = bareRef.ReplaceAllStringFunc(substituted, func(ref string) string {
		return substitution(ev.cells, ref)
	})
	result, err := evalInfix(substituted)
	if err != nil {
		return ErrorValue
	}
	if b, ok := result.(bool); ok {
		if b {
			return "TRUE"
		}
		return "FALSE"
	}
	return result
}

func substitution(cells sheet.CellMap, ref string) string {
	pos, err := sheet.ParseAddress(ref)
	if err != nil {
		return "0"
	}
	value := cells[sheet.Key(pos)].Value
	if value == "" {
		return "0"
	}
	if _, ok := parseNumber(value); ok {
		return value
	}
	return `"` + value + `"`
}

// literalValue interprets an IF branch or IFERROR fallback: numbers become
// float64, anything else loses its surrounding quotes and stays a string.
func literalValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if num, ok := parseNumber(trimmed); ok {
		return num
	}
	return dequote(trimmed)
}

// parseNumber is deliberately lenient: it reads a leading decimal number and
// ignores trailing text, so "25000" and "25 units" both yield a value while
// "Alice" does not.
func parseNumber(raw string) (float64, bool) {
	prefix := leadingNumber.FindString(strings.TrimSpace(raw))
	if prefix == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}

func dequote(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), `"`, "")
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case float64:
		return typed != 0
	case string:
		return typed != "" && typed != "FALSE" && typed != "0"
	}
	return false
}

func byRow(values []sheet.RangeValue) map[int]string {
	out := make(map[int]string, len(values))
	for _, value := range values {
		out[value.Pos.Row] = value.Value
	}
	return out
}

// Display renders an evaluation result the way a cell shows it.
func Display(result any) string {
	return stringify(result)
}
