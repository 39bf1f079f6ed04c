package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadhlirahim/llm-cli/internal/llm"
	"github.com/google/uuid"
)

// Session is one conversation. The JSON form is what `save` writes.
type Session struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Model       string        `json:"model"`
	Summary     string        `json:"summary,omitempty"` // First user message
	Messages    []llm.Message `json:"messages"`
	TotalTokens int           `json:"total_tokens"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// NewID returns a new random session id.
func NewID() string {
	return uuid.NewString()
}

// New creates an empty session for model.
func New(model string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        NewID(),
		CreatedAt: now,
		UpdatedAt: now,
		Model:     model,
		Messages:  []llm.Message{},
	}
}

// AddMessage appends msg. The first user message becomes the summary.
func (s *Session) AddMessage(msg llm.Message) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now().UTC()
	if s.Summary == "" && msg.Role == llm.RoleUser {
		s.Summary = TruncateSummary(msg.Content)
	}
}

// PopMessage removes and returns the last message.
func (s *Session) PopMessage() (llm.Message, bool) {
	if len(s.Messages) == 0 {
		return llm.Message{}, false
	}
	last := s.Messages[len(s.Messages)-1]
	s.Messages = s.Messages[:len(s.Messages)-1]
	return last, true
}

// History returns the conversation so far.
func (s *Session) History() []llm.Message {
	return s.Messages
}

// Clear drops every message. A non-empty system prompt is kept as the
// first message.
func (s *Session) Clear(systemPrompt string) {
	s.Messages = []llm.Message{}
	s.Summary = ""
	if systemPrompt != "" {
		s.Messages = append(s.Messages, llm.SystemText(systemPrompt))
	}
}

// AddUsage accumulates token usage for one reply.
func (s *Session) AddUsage(u llm.Usage) {
	s.InputTokens += u.InputTokens
	s.OutputTokens += u.OutputTokens
	s.TotalTokens += u.Total()
}

// Conversation returns the messages that are not the system prompt.
func (s *Session) Conversation() []llm.Message {
	var out []llm.Message
	for _, m := range s.Messages {
		if m.Role != llm.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// ToMarkdown exports the session as a markdown document.
func (s *Session) ToMarkdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Chat Session: %s\n", s.ID)
	fmt.Fprintf(&sb, "**Date:** %s\n", s.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&sb, "**Model:** %s\n\n", s.Model)
	for _, m := range s.Messages {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", RoleTitle(m.Role), m.Content)
	}
	return sb.String()
}

// RoleTitle returns the display name of a role.
func RoleTitle(role llm.Role) string {
	switch role {
	case llm.RoleSystem:
		return "System"
	case llm.RoleUser:
		return "User"
	case llm.RoleAssistant:
		return "Assistant"
	}
	return string(role)
}

// SaveJSON writes the session as indented JSON to path, or to
// <data dir>/sessions/<id>.json when path is empty. It returns the path
// written.
func (s *Session) SaveJSON(path string) (string, error) {
	if path == "" {
		dir, err := JSONDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, s.ID+".json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}
	return path, nil
}

// LoadJSON reads a session written by SaveJSON.
func LoadJSON(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	return &s, nil
}

// Message is a stored message of a session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Sequence  int       `json:"sequence"`
}

// ToLLMMessage converts a Message back to an llm.Message.
func (m *Message) ToLLMMessage() llm.Message {
	return llm.Message{Role: m.Role, Content: m.Content}
}

// Summary is a lightweight view of a session for listing.
type Summary struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary,omitempty"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	TotalTokens  int       `json:"total_tokens"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListOptions configures session listing.
type ListOptions struct {
	Model  string // Filter by model
	Limit  int    // Max results (0 = use default)
	Offset int    // Pagination offset
}

// Stats aggregates usage across stored sessions.
type Stats struct {
	Sessions     int
	Messages     int
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	ByModel      []ModelStats
}

// ModelStats is the usage of one model.
type ModelStats struct {
	Model       string
	Sessions    int
	TotalTokens int
}

// ShortID returns the first 8 characters of id for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// TruncateSummary returns the first line of content, truncated to 100 chars.
func TruncateSummary(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "\n"); idx != -1 {
		content = content[:idx]
	}
	if len(content) > 100 {
		content = content[:97] + "..."
	}
	return content
}
