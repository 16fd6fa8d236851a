package models

// Usage reports token accounting for one completion.
type Usage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

// UniResponse is the unified terminal result of one adapter call: the
// assembled assistant content, optional usage statistics and any tool
// calls the model issued.
type UniResponse struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Usage     *Usage     `json:"usage,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// NewUniResponse returns an assistant-role response.
func NewUniResponse(content string, calls []ToolCall) *UniResponse {
	return &UniResponse{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// AsMessage converts the response into a memory message.
func (r *UniResponse) AsMessage() Message {
	return NewAssistantMessage(r.Content, r.ToolCalls)
}
