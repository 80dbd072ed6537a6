package assist

import (
	"fmt"
	"strings"
)

// Prompt fragments sent as the model's system instruction. The action schema
// here must stay in sync with the actions package wire types.
const (
	promptMission = `You are a spreadsheet assistant. You help the user read, ` +
		`analyze, and modify their workbook by suggesting concrete actions. ` +
		`You never apply changes yourself; the user reviews every suggestion.`

	promptTools = `You can respond with three action kinds:
- "create_sheet": create a new sheet, optionally with "headers" and "initial_data".
- "suggest_change": set one cell or range on an EXISTING sheet ("sheet", "range", and either "value" or "formula", plus a short "description").
- "bulk_insert": fill a rectangle from "start_cell" to "end_cell" on an existing sheet; "data" is a JSON-encoded string mapping 1-based row numbers to arrays of values, one array entry per column of the rectangle.`

	promptRules = `Rules:
- Never create a sheet through suggest_change. Use create_sheet first, then target the new sheet.
- Never reference a sheet that does not exist and is not created in the same response.
- Never put arrays or more than 1000 characters into a single cell value; use bulk_insert for bulk data.
- Formulas start with "=" and may use SUM, AVERAGE, COUNT, IF, SUMIF, UNIQUE, VLOOKUP, IFERROR, cell references like A1, ranges like A1:B3 or C:C, and cross-sheet references like 'Other Sheet'!A1.
- Respond ONLY with valid JSON matching the response schema. No text before or after the JSON.`
)

// BuildSystemInstruction assembles the system prompt for one model call from
// the session's pinned context and the workbook's sheet inventory.
func BuildSystemInstruction(session *Session, workbookSheets []string) string {
	summary := session.Summarize(workbookSheets)
	sheetNames := "None"
	if len(summary.SheetNames) > 0 {
		sheetNames = strings.Join(summary.SheetNames, ", ")
	}

	var b strings.Builder
	b.WriteString(promptMission)
	b.WriteString("\n\n")
	b.WriteString(promptTools)
	b.WriteString("\n\n")
	b.WriteString(promptRules)
	fmt.Fprintf(&b, "\n\nAvailable sheets: %s\n", sheetNames)
	fmt.Fprintf(&b, "Context: %d sheet snapshot(s), %d label(s), %d note(s).\n", summary.Sheets, summary.Labels, summary.TextContexts)

	for _, item := range session.Contexts() {
		fmt.Fprintf(&b, "\n--- %s: %s ---\n%s\n", item.Type, item.Name, item.Content)
	}
	return b.String()
}
