// Package gemini wraps the Gemini generateContent API for structured
// spreadsheet-action output.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"sheetpilot/engine/internal/egress"
	"sheetpilot/engine/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// actionSchema constrains the model to the action batch wire shape. Keeping
// the schema on the request is what makes the JSON-or-bust contract hold in
// practice; the parse fallback still guards against the rare miss.
var actionSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "actions": {
      "type": "OBJECT",
      "properties": {
        "none": {"type": "BOOLEAN"},
        "suggest_change": {
          "type": "ARRAY",
          "items": {
            "type": "OBJECT",
            "properties": {
              "type": {"type": "STRING"},
              "sheet": {"type": "STRING"},
              "range": {"type": "STRING"},
              "formula": {"type": "STRING"},
              "value": {"type": "STRING"},
              "description": {"type": "STRING"}
            },
            "required": ["type", "sheet", "description"]
          }
        },
        "bulk_insert": {
          "type": "ARRAY",
          "items": {
            "type": "OBJECT",
            "properties": {
              "sheet": {"type": "STRING"},
              "start_cell": {"type": "STRING"},
              "end_cell": {"type": "STRING"},
              "data": {"type": "STRING"},
              "description": {"type": "STRING"}
            },
            "required": ["sheet", "start_cell", "end_cell", "data", "description"]
          }
        },
        "create_sheet": {
          "type": "ARRAY",
          "items": {
            "type": "OBJECT",
            "properties": {
              "name": {"type": "STRING"},
              "description": {"type": "STRING"},
              "headers": {"type": "ARRAY", "items": {"type": "STRING"}}
            },
            "required": ["name", "description"]
          }
        }
      }
    },
    "message": {"type": "STRING"},
    "recursive": {"type": "BOOLEAN"}
  },
  "required": ["message"]
}`)

// Client is a minimal generateContent wrapper locked to the Gemini host.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient() *Client {
	transport := egress.NewAllowlistRoundTripper(http.DefaultTransport, []string{"generativelanguage.googleapis.com"})
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
	}
}

// ValidateKey probes the models endpoint with the given key.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	u, err := url.Parse(c.baseURL + "/v1beta/models")
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, llm.ErrEgressBlocked) {
			return llm.ErrEgressBlocked
		}
		return err
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("validation failed: %s", resp.Status)
	}
	return nil
}

// GenerateActions runs one structured-output generateContent call and returns
// the raw response text, which the caller decodes as an action batch.
func (c *Client) GenerateActions(ctx context.Context, apiKey, model, systemInstruction string, messages []llm.Message) (string, error) {
	payload := geminiRequest{
		Contents: toGeminiContents(messages),
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   actionSchema,
		},
	}
	if systemInstruction != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("content-type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, llm.ErrEgressBlocked) {
			return "", llm.ErrEgressBlocked
		}
		return "", err
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode); err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini error: %s - %s", resp.Status, string(errorBody))
	}
	var response geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", err
	}
	if len(response.Candidates) == 0 {
		return "", errors.New("gemini empty response")
	}
	var buf bytes.Buffer
	for _, part := range response.Candidates[0].Content.Parts {
		buf.WriteString(part.Text)
	}
	if buf.Len() == 0 {
		return "", errors.New("gemini response has no text")
	}
	return buf.String(), nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return llm.ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return llm.ErrRateLimited
	case code >= 500:
		return llm.ErrUnavailable
	}
	return nil
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

func toGeminiContents(messages []llm.Message) []geminiContent {
	var result []geminiContent
	for _, msg := range messages {
		result = append(result, geminiContent{Role: mapRole(msg.Role), Parts: []geminiPart{{Text: msg.Content}}})
	}
	return result
}

// mapRole folds roles onto the two the API accepts. System-role feedback
// turns travel as user content; the real system instruction rides the
// dedicated request field.
func mapRole(role string) string {
	switch role {
	case llm.RoleAssistant, "model":
		return "model"
	default:
		return "user"
	}
}
