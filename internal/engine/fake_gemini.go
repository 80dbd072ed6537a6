package engine

import (
	"context"
	"encoding/json"
	"sync"

	"sheetpilot/engine/internal/llm"
)

// fakeGemini stands in for the real provider when SHEETPILOT_FAKE_GEMINI is
// set, so the full assist path can run offline. Responses can be queued;
// otherwise it answers with a no-action message describing what it received.
type fakeGemini struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func newFakeGemini() *fakeGemini {
	return &fakeGemini{}
}

func (f *fakeGemini) queue(response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response)
}

func (f *fakeGemini) ValidateKey(ctx context.Context, apiKey string) error {
	return nil
}

func (f *fakeGemini) GenerateActions(ctx context.Context, apiKey, model, systemInstruction string, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.responses) > 0 {
		next := f.responses[0]
		f.responses = f.responses[1:]
		return next, nil
	}
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	out, _ := json.Marshal(map[string]any{
		"actions": map[string]any{"none": true},
		"message": "Fake model received: " + prompt,
	})
	return string(out), nil
}
