package models

import (
	"encoding/json"
	"fmt"
)

// MemoryModel is the conversation memory of one session: an ordered
// message sequence, the wall-clock seconds of the last commit, and a
// running summary of any messages compacted away.
type MemoryModel struct {
	Messages []Message `json:"messages"`
	Time     float64   `json:"time"`
	Abstract string    `json:"abstract"`
}

// NewMemoryModel returns an empty memory.
func NewMemoryModel() *MemoryModel {
	return &MemoryModel{Messages: []Message{}}
}

// Clone returns a deep copy. Mutating the copy never affects the original.
func (m *MemoryModel) Clone() *MemoryModel {
	out := &MemoryModel{Time: m.Time, Abstract: m.Abstract}
	out.Messages = make([]Message, len(m.Messages))
	for i, msg := range m.Messages {
		out.Messages[i] = cloneMessage(msg)
	}
	return out
}

func cloneMessage(msg Message) Message {
	if msg.ToolCalls != nil {
		calls := make([]ToolCall, len(msg.ToolCalls))
		copy(calls, msg.ToolCalls)
		msg.ToolCalls = calls
	}
	if msg.Parts != nil {
		parts := make([]ContentPart, len(msg.Parts))
		copy(parts, msg.Parts)
		msg.Parts = parts
	}
	return msg
}

// Append adds a message to the end of the sequence.
func (m *MemoryModel) Append(msg Message) {
	m.Messages = append(m.Messages, msg)
}

// NonSystemCount returns the number of user/assistant/tool messages.
func (m *MemoryModel) NonSystemCount() int {
	n := 0
	for _, msg := range m.Messages {
		if msg.Role != RoleSystem {
			n++
		}
	}
	return n
}

// CheckToolPairs verifies that every tool message answers a tool call
// issued by an earlier assistant message.
func (m *MemoryModel) CheckToolPairs() error {
	seen := map[string]bool{}
	for i, msg := range m.Messages {
		if msg.Role == RoleAssistant {
			for _, tc := range msg.ToolCalls {
				seen[tc.ID] = true
			}
		}
		if msg.Role == RoleTool && !seen[msg.ToolCallID] {
			return fmt.Errorf("tool message at index %d references unknown tool_call_id %q", i, msg.ToolCallID)
		}
	}
	return nil
}

// Serialize encodes the memory as JSON.
func (m *MemoryModel) Serialize() ([]byte, error) {
	return json.Marshal(m)
}

// DeserializeMemory decodes a memory previously produced by Serialize.
func DeserializeMemory(data []byte) (*MemoryModel, error) {
	var m MemoryModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode memory: %w", err)
	}
	if m.Messages == nil {
		m.Messages = []Message{}
	}
	return &m, nil
}
