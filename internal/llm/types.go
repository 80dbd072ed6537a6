package llm

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used throughout the assist pipeline. The system role carries the
// synthetic validation-feedback turn injected by the correction loop.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
