// Package assist holds the conversation state for the AI side panel and the
// orchestration that turns a user prompt into a validated action batch.
package assist

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"sheetpilot/engine/internal/llm"
)

const (
	ContextTypeSheet = "sheet"
	ContextTypeText  = "text"

	labelPrefix = "Label: "
)

// ContextItem is one piece of material the user has pinned for the model:
// a sheet snapshot or a free-text note.
type ContextItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is one past conversation turn, with the outcome of any
// suggestion the model made in it.
type HistoryEntry struct {
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	SuggestionStatus string    `json:"ai_suggestion_status,omitempty"`
}

// Session is the mutable conversation state: pinned context items plus chat
// history. One session per connected client; handlers touch it concurrently.
type Session struct {
	mu          sync.Mutex
	items       []ContextItem
	history     []HistoryEntry
	maxMessages int
	nextID      int
	now         func() time.Time
}

// NewSession creates a session that sends at most maxMessages recent history
// entries to the model.
func NewSession(maxMessages int) *Session {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &Session{maxMessages: maxMessages, now: time.Now}
}

// AddSheetContext pins a sheet snapshot, replacing any earlier snapshot of
// the same sheet so the model never sees stale and fresh copies together.
func (s *Session) AddSheetContext(name, content string) ContextItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.Type == ContextTypeSheet && item.Name == name {
			s.items[i].Content = content
			s.items[i].Timestamp = s.now()
			return s.items[i]
		}
	}
	item := ContextItem{
		ID:        s.newID(ContextTypeSheet),
		Type:      ContextTypeSheet,
		Name:      name,
		Content:   content,
		Timestamp: s.now(),
	}
	s.items = append(s.items, item)
	return item
}

// AddTextContext pins a free-text note.
func (s *Session) AddTextContext(name, content string) ContextItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := ContextItem{
		ID:        s.newID(ContextTypeText),
		Type:      ContextTypeText,
		Name:      name,
		Content:   content,
		Timestamp: s.now(),
	}
	s.items = append(s.items, item)
	return item
}

// RemoveContext unpins an item by ID. Unknown IDs are a no-op.
func (s *Session) RemoveContext(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contexts returns a copy of the pinned items.
func (s *Session) Contexts() []ContextItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ContextItem(nil), s.items...)
}

// AddMessage appends a conversation turn.
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, HistoryEntry{Role: role, Content: content, Timestamp: s.now()})
}

// History returns a copy of the full conversation.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

// ClearHistory drops the conversation but keeps pinned context.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// RecentMessages returns the trailing window of history as model messages.
func (s *Session) RecentMessages() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.history
	if len(entries) > s.maxMessages {
		entries = entries[len(entries)-s.maxMessages:]
	}
	out := make([]llm.Message, 0, len(entries))
	for _, entry := range entries {
		out = append(out, llm.Message{Role: entry.Role, Content: entry.Content})
	}
	return out
}

// Summary aggregates what the session holds, for prompt construction.
type Summary struct {
	TotalItems   int      `json:"total_items"`
	Sheets       int      `json:"sheets"`
	Labels       int      `json:"labels"`
	TextContexts int      `json:"text_contexts"`
	SheetNames   []string `json:"sheet_names"`
}

// Summarize counts pinned items and merges the workbook's sheet names with
// any sheet names only known from context. Label notes are text items whose
// name carries the label prefix.
func (s *Session) Summarize(workbookSheets []string) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := Summary{TotalItems: len(s.items)}
	seen := make(map[string]bool)
	for _, name := range workbookSheets {
		if !seen[name] {
			seen[name] = true
			summary.SheetNames = append(summary.SheetNames, name)
		}
	}
	for _, item := range s.items {
		switch {
		case item.Type == ContextTypeSheet:
			summary.Sheets++
			if !seen[item.Name] {
				seen[item.Name] = true
				summary.SheetNames = append(summary.SheetNames, item.Name)
			}
		case strings.HasPrefix(item.Name, labelPrefix):
			summary.Labels++
		default:
			summary.TextContexts++
		}
	}
	return summary
}

func (s *Session) newID(kind string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", kind, s.nextID)
}
