package core

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id,omitempty"`        // Provider supplied call id (generated when absent)
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument object
}

// Message is one entry of a Thread. Messages are values: once appended to a
// Thread they are never modified.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // Set on assistant messages requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // Set on tool messages; matches ToolCall.ID
	Name       string     `json:"name,omitempty"`         // Tool name for tool messages
	IsError    bool       `json:"is_error,omitempty"`     // Tool message carries a failure description
	Timestamp  time.Time  `json:"timestamp"`
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message { return newMessage(RoleSystem, content) }

// NewUserMessage creates a user-authored text message.
func NewUserMessage(content string) Message { return newMessage(RoleUser, content) }

// NewAssistantMessage creates an assistant message. toolCalls may be nil for
// a final answer.
func NewAssistantMessage(content string, toolCalls []ToolCall) Message {
	m := newMessage(RoleAssistant, content)
	if len(toolCalls) > 0 {
		m.ToolCalls = append([]ToolCall(nil), toolCalls...)
	}
	return m
}

// NewToolMessage records the outcome of one tool call.
func NewToolMessage(call ToolCall, content string, isError bool) Message {
	m := newMessage(RoleTool, content)
	m.ToolCallID = call.ID
	m.Name = call.Name
	m.IsError = isError
	return m
}

// HasToolCalls reports whether the message requests tool executions.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// clone copies the slice fields so callers cannot reach into Thread storage.
func (m Message) clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return m
}
