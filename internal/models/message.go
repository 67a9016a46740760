package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type PartType string

const (
	PartTypeText           PartType = "text"
	PartTypeToolInvocation PartType = "tool-invocation"
)

// MessagePart is one typed fragment of an assistant message: either plain
// text or a tool invocation. Parts keep the order in which the model
// produced them.
type MessagePart struct {
	Type           PartType        `json:"type"`
	Text           string          `json:"text,omitempty"`
	ToolInvocation *ToolInvocation `json:"tool_invocation,omitempty"`
}

type ToolInvocation struct {
	ToolCallID string          `json:"tool_call_id"`
	ToolName   string          `json:"tool_name"`
	Args       json.RawMessage `json:"args"`
}

type ConversationMessage struct {
	ID      string        `json:"id"`
	Role    Role          `json:"role"`
	Content string        `json:"content"`
	Parts   []MessagePart `json:"parts,omitempty"`
}

func NewUserMessage(content string) ConversationMessage {
	return ConversationMessage{
		ID:      uuid.New().String(),
		Role:    RoleUser,
		Content: content,
	}
}

func NewAssistantMessage() ConversationMessage {
	return ConversationMessage{
		ID:   uuid.New().String(),
		Role: RoleAssistant,
	}
}

func (m *ConversationMessage) AddTextPart(text string) {
	m.Parts = append(m.Parts, MessagePart{Type: PartTypeText, Text: text})
}

func (m *ConversationMessage) AddToolInvocation(inv ToolInvocation) {
	m.Parts = append(m.Parts, MessagePart{Type: PartTypeToolInvocation, ToolInvocation: &inv})
}

// ConversationSnapshot is the synthetic user+assistant pair persisted after a
// profile redirect, replayed later as conditioning memory for follow-up
// generation.
type ConversationSnapshot struct {
	UserMessage      ConversationMessage `json:"user_message"`
	AssistantMessage ConversationMessage `json:"assistant_message"`
	SavedAt          time.Time           `json:"saved_at"`
}

func NewConversationSnapshot(userPrompt, assistantSummary string) *ConversationSnapshot {
	user := NewUserMessage(userPrompt)
	assistant := NewAssistantMessage()
	assistant.Content = assistantSummary

	return &ConversationSnapshot{
		UserMessage:      user,
		AssistantMessage: assistant,
		SavedAt:          time.Now(),
	}
}

// Messages flattens the snapshot back into replayable history.
func (s *ConversationSnapshot) Messages() []ConversationMessage {
	return []ConversationMessage{s.UserMessage, s.AssistantMessage}
}

type RouteKind string

const (
	RouteNoOp            RouteKind = "noop"
	RouteErrorRedirect   RouteKind = "error_redirect"
	RouteProfileRedirect RouteKind = "profile_redirect"
)

// RouteDecision is the single outcome of routing a terminal assistant
// message: exactly one of the three kinds, with the payload for that kind.
type RouteDecision struct {
	Kind         RouteKind    `json:"kind"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Profile      *ProfileData `json:"profile,omitempty"`
	Summary      string       `json:"summary,omitempty"`
}

func NoOpDecision(summary string) RouteDecision {
	return RouteDecision{Kind: RouteNoOp, Summary: summary}
}

func ErrorRedirectDecision(message string) RouteDecision {
	return RouteDecision{Kind: RouteErrorRedirect, ErrorMessage: message}
}

func ProfileRedirectDecision(profile *ProfileData, summary string) RouteDecision {
	return RouteDecision{Kind: RouteProfileRedirect, Profile: profile, Summary: summary}
}
