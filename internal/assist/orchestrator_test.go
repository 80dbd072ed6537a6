package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sheetpilot/engine/internal/llm"
)

type scriptedClient struct {
	responses []string
	errs      []error
	calls     [][]llm.Message
}

func (c *scriptedClient) Generate(_ context.Context, _ string, messages []llm.Message) (string, error) {
	i := len(c.calls)
	c.calls = append(c.calls, messages)
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	return c.responses[i], nil
}

const validResponse = `{"message":"done","actions":{"suggest_change":[{"type":"value","sheet":"Sheet1","range":"A1","value":"5","description":"set A1"}]}}`

const invalidResponse = `{"message":"oops","actions":{"suggest_change":[{"type":"value","sheet":"Ghost","value":"5","description":"set cell"}]}}`

func TestRunReturnsValidFirstAttempt(t *testing.T) {
	client := &scriptedClient{responses: []string{validResponse}}
	orch := NewOrchestrator(client, nil)
	payload, err := orch.Run(context.Background(), NewSession(0), "set A1 to 5", []string{"Sheet1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(client.calls))
	}
	if payload.AutoCorrected || len(payload.Changes) != 1 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestRunCorrectsOnceWithFeedback(t *testing.T) {
	client := &scriptedClient{responses: []string{invalidResponse, validResponse}}
	orch := NewOrchestrator(client, nil)
	payload, err := orch.Run(context.Background(), NewSession(0), "set A1 to 5", []string{"Sheet1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(client.calls))
	}
	if !payload.AutoCorrected {
		t.Fatalf("corrected payload should be flagged: %+v", payload)
	}
	second := client.calls[1]
	if len(second) < 2 {
		t.Fatalf("correction call too short: %v", second)
	}
	feedback := second[len(second)-2]
	if feedback.Role != llm.RoleSystem || !strings.Contains(feedback.Content, "Ghost") {
		t.Fatalf("feedback turn = %+v", feedback)
	}
	if !strings.Contains(second[len(second)-1].Content, "CORRECTION REQUIRED") {
		t.Fatalf("correction prompt missing: %+v", second[len(second)-1])
	}
}

func TestRunStopsAfterSecondFailure(t *testing.T) {
	client := &scriptedClient{responses: []string{invalidResponse, invalidResponse}}
	orch := NewOrchestrator(client, nil)
	payload, err := orch.Run(context.Background(), NewSession(0), "do things", []string{"Sheet1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("calls = %d, want exactly 2 (one correction, no more)", len(client.calls))
	}
	if payload.Explanation != correctionFailedMessage {
		t.Fatalf("explanation = %q", payload.Explanation)
	}
	if strings.Contains(payload.Explanation, "Ghost") || len(payload.Changes) != 0 {
		t.Fatalf("validator detail leaked into user payload: %+v", payload)
	}
}

func TestRunFirstCallErrorPropagates(t *testing.T) {
	sentinel := errors.New("boom")
	client := &scriptedClient{errs: []error{sentinel}}
	orch := NewOrchestrator(client, nil)
	if _, err := orch.Run(context.Background(), NewSession(0), "hi", nil); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
}

func TestRunCorrectionCallErrorDegrades(t *testing.T) {
	client := &scriptedClient{
		responses: []string{invalidResponse, ""},
		errs:      []error{nil, errors.New("unreachable")},
	}
	orch := NewOrchestrator(client, nil)
	payload, err := orch.Run(context.Background(), NewSession(0), "hi", []string{"Sheet1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if payload.Explanation != retryUnavailableMessage {
		t.Fatalf("explanation = %q", payload.Explanation)
	}
}

func TestSessionRecentMessagesWindow(t *testing.T) {
	session := NewSession(3)
	for _, content := range []string{"a", "b", "c", "d", "e"} {
		session.AddMessage(llm.RoleUser, content)
	}
	recent := session.RecentMessages()
	if len(recent) != 3 || recent[0].Content != "c" || recent[2].Content != "e" {
		t.Fatalf("recent = %+v", recent)
	}
}

func TestSessionSheetContextUpsert(t *testing.T) {
	session := NewSession(0)
	first := session.AddSheetContext("Sheet1", "v1")
	second := session.AddSheetContext("Sheet1", "v2")
	if first.ID != second.ID {
		t.Fatalf("sheet context should update in place, got %q then %q", first.ID, second.ID)
	}
	items := session.Contexts()
	if len(items) != 1 || items[0].Content != "v2" {
		t.Fatalf("items = %+v", items)
	}
}

func TestSessionSummarize(t *testing.T) {
	session := NewSession(0)
	session.AddSheetContext("Extra", "data")
	session.AddTextContext("Label: Q1 totals", "A1:B4")
	session.AddTextContext("notes", "remember the margin")
	summary := session.Summarize([]string{"Sheet1", "Extra"})
	if summary.Sheets != 1 || summary.Labels != 1 || summary.TextContexts != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.SheetNames) != 2 {
		t.Fatalf("sheet names should deduplicate: %v", summary.SheetNames)
	}
}
