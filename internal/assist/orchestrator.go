package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sheetpilot/engine/internal/actions"
	"sheetpilot/engine/internal/llm"
	"sheetpilot/engine/internal/logging"
)

// Client generates one model turn. Implemented by the Gemini client and by
// scripted fakes in tests.
type Client interface {
	Generate(ctx context.Context, systemInstruction string, messages []llm.Message) (string, error)
}

// User-safe texts for the two terminal failure shapes. Validator detail is
// logged, never shown.
const (
	correctionFailedMessage = "I apologize, but I encountered some technical difficulties processing your request. " +
		"Please try rephrasing your request or breaking it into smaller parts."
	retryUnavailableMessage = "I'm having trouble processing your request right now. " +
		"Please try again in a moment or rephrase your request."
)

// Orchestrator drives the attempt/correction state machine around the model:
// one call, validate, and on failure exactly one corrective call with the
// validator's findings fed back. There is no retry loop beyond that; a second
// failure degrades to a generic message rather than burning more calls
// against a non-deterministic backend.
type Orchestrator struct {
	client Client
	logger *slog.Logger
}

func NewOrchestrator(client Client, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Orchestrator{client: client, logger: logger}
}

// Run sends the prompt and returns a validated payload. A transport or
// provider failure on the first call is returned as an error; once the first
// call has succeeded, every later failure resolves to a user-safe payload
// with a nil error, because at that point there is always something to show.
func (o *Orchestrator) Run(ctx context.Context, session *Session, prompt string, knownSheets []string) (actions.Payload, error) {
	instruction := BuildSystemInstruction(session, knownSheets)
	messages := append(session.RecentMessages(), llm.Message{Role: llm.RoleUser, Content: prompt})

	raw, err := o.client.Generate(ctx, instruction, messages)
	if err != nil {
		return actions.Payload{}, fmt.Errorf("assist: model call failed: %w", err)
	}
	payload, verrs := actions.Validate(actions.ParseResponse(raw), knownSheets)
	if len(verrs) == 0 {
		return payload, nil
	}

	o.logger.Warn("assist.validation_failed",
		slog.Int("error_count", len(verrs)),
		slog.String("errors", strings.Join(verrs, "; ")))

	corrected := append(messages,
		llm.Message{Role: llm.RoleSystem, Content: validationFeedback(verrs)},
		llm.Message{Role: llm.RoleUser, Content: correctionPrompt(prompt)})

	raw, err = o.client.Generate(ctx, instruction, corrected)
	if err != nil {
		o.logger.Error("assist.correction_call_failed", slog.String("error", err.Error()))
		return genericFailure(retryUnavailableMessage), nil
	}
	payload, verrs = actions.Validate(actions.ParseResponse(raw), knownSheets)
	if len(verrs) > 0 {
		o.logger.Warn("assist.correction_failed",
			slog.Int("error_count", len(verrs)),
			slog.String("errors", strings.Join(verrs, "; ")))
		return genericFailure(correctionFailedMessage), nil
	}
	payload.AutoCorrected = true
	return payload, nil
}

func validationFeedback(verrs []string) string {
	return "VALIDATION ERROR - YOUR PREVIOUS RESPONSE WAS INVALID: " + strings.Join(verrs, " ") +
		"\n\nYou MUST fix these errors and provide a corrected response. " +
		"Pay special attention to using the correct action types and following the required JSON schema."
}

func correctionPrompt(prompt string) string {
	return fmt.Sprintf("CORRECTION REQUIRED: Your previous response had validation errors. "+
		"Provide a corrected response for the original request: %q\n\n"+
		"Pay attention to the validation errors noted above.", prompt)
}

func genericFailure(message string) actions.Payload {
	return actions.Payload{
		Changes:     []actions.Change{},
		Sheets:      []actions.CreateSheet{},
		BulkInserts: []actions.BulkInsert{},
		Explanation: message,
	}
}
