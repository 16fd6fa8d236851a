// Package models defines the shared data records of the Amrita runtime:
// chat messages, conversation memory, tool schemas, model presets and the
// unified completion response.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPartType discriminates structured content parts.
type ContentPartType string

const (
	PartText  ContentPartType = "text"
	PartImage ContentPartType = "image_url"
)

// ContentPart is one element of a structured message content list.
type ContentPart struct {
	Type ContentPartType `json:"type"`
	Text string          `json:"text,omitempty"`
	URL  string          `json:"image_url,omitempty"`
}

// Message is a single chat-completion message. Content is a sum type:
// either a plain string or a list of structured parts. On the wire a
// single-text part list collapses to a bare string.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"-"`
	Parts      []ContentPart `json:"-"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Name       string        `json:"name,omitempty"`
}

// ToolCall is a model-issued request to execute a tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its raw JSON argument string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewSystemMessage returns a system-role message with plain text content.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage returns a user-role message with plain text content.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage returns an assistant message carrying content and
// any tool calls the model issued alongside it.
func NewAssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolResultMessage returns the tool-role message answering a tool call.
func NewToolResultMessage(name, content, toolCallID string) Message {
	return Message{Role: RoleTool, Name: name, Content: content, ToolCallID: toolCallID}
}

// IsStructured reports whether the message carries part-list content.
func (m Message) IsStructured() bool { return len(m.Parts) > 0 }

// Text returns the plain-text view of the content. For structured content
// it concatenates the text parts in order.
func (m Message) Text() string {
	if !m.IsStructured() {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// ErrEmptyAssistantMessage is returned by Validate for an assistant message
// with neither content nor tool calls.
var ErrEmptyAssistantMessage = errors.New("assistant message has empty content and no tool calls")

// Validate checks structural invariants of the message.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if m.Role == RoleAssistant && m.Content == "" && len(m.Parts) == 0 && len(m.ToolCalls) == 0 {
		return ErrEmptyAssistantMessage
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return fmt.Errorf("tool message %q missing tool_call_id", m.Name)
	}
	return nil
}

type messageWire struct {
	Role       Role            `json:"role"`
	Content    json.RawMessage `json:"content"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// MarshalJSON emits content as a bare string, or as a part list when the
// message is structured. A part list holding a single text part collapses
// to the string form for compatibility with strict endpoints.
func (m Message) MarshalJSON() ([]byte, error) {
	w := messageWire{
		Role:       m.Role,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	var content any
	switch {
	case len(m.Parts) == 1 && m.Parts[0].Type == PartText:
		content = m.Parts[0].Text
	case len(m.Parts) > 0:
		content = m.Parts
	default:
		content = m.Content
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	w.Content = raw
	return json.Marshal(w)
}

// UnmarshalJSON accepts both string and part-list content forms.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Role = w.Role
	m.ToolCalls = w.ToolCalls
	m.ToolCallID = w.ToolCallID
	m.Name = w.Name
	m.Content = ""
	m.Parts = nil
	if len(w.Content) == 0 || string(w.Content) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(w.Content, &s); err == nil {
		m.Content = s
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(w.Content, &parts); err != nil {
		return fmt.Errorf("message content is neither string nor part list: %w", err)
	}
	m.Parts = parts
	return nil
}
