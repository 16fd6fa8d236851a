package models

import (
	"fmt"
)

// ToolCallingMode selects how tools are offered to the model.
type ToolCallingMode string

const (
	ToolModeAgent ToolCallingMode = "agent"
	ToolModeRAG   ToolCallingMode = "rag"
	ToolModeNone  ToolCallingMode = "none"
)

// ThoughtMode selects how reasoning-tool usage is enforced.
type ThoughtMode string

const (
	ThoughtReasoning         ThoughtMode = "reasoning"
	ThoughtChat              ThoughtMode = "chat"
	ThoughtReasoningRequired ThoughtMode = "reasoning-required"
	ThoughtReasoningOptional ThoughtMode = "reasoning-optional"
)

// FunctionConfig controls agent-loop behavior.
type FunctionConfig struct {
	UseMinimalContext    bool            `json:"use_minimal_context" yaml:"use_minimal_context"`
	ToolCallingMode      ToolCallingMode `json:"tool_calling_mode" yaml:"tool_calling_mode"`
	AgentThoughtMode     ThoughtMode     `json:"agent_thought_mode" yaml:"agent_thought_mode"`
	AgentMCPClientEnable bool            `json:"agent_mcp_client_enable" yaml:"agent_mcp_client_enable"`
	AgentMCPServerScripts []string       `json:"agent_mcp_server_scripts" yaml:"agent_mcp_server_scripts"`
	AgentMiddleMessage   bool            `json:"agent_middle_message" yaml:"agent_middle_message"`
	AgentMaxToolCalls    int             `json:"agent_max_tool_calls" yaml:"agent_max_tool_calls"`
}

// LLMConfig controls request limits, retries and memory policy.
type LLMConfig struct {
	MaxTokens                int     `json:"max_tokens" yaml:"max_tokens"`
	LLMTimeoutSeconds        int     `json:"llm_timeout_s" yaml:"llm_timeout_s"`
	AutoRetry                bool    `json:"auto_retry" yaml:"auto_retry"`
	MaxRetries               int     `json:"max_retries" yaml:"max_retries"`
	MemoryLengthLimit        int     `json:"memory_length_limit" yaml:"memory_length_limit"`
	EnableMemoryAbstract     bool    `json:"enable_memory_abstract" yaml:"enable_memory_abstract"`
	MemoryAbstractProportion float64 `json:"memory_abstract_proportion" yaml:"memory_abstract_proportion"`
}

// CookieConfig controls the prompt-injection leak check.
type CookieConfig struct {
	EnableCookie bool   `json:"enable_cookie" yaml:"enable_cookie"`
	Cookie       string `json:"cookie" yaml:"cookie"` // auto-randomized when empty
}

// AmritaConfig aggregates the runtime configuration.
type AmritaConfig struct {
	Function FunctionConfig `json:"function" yaml:"function"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Cookie   CookieConfig   `json:"cookie" yaml:"cookie"`
}

// DefaultConfig returns the configuration a bare Init starts from.
func DefaultConfig() *AmritaConfig {
	return &AmritaConfig{
		Function: FunctionConfig{
			ToolCallingMode:   ToolModeAgent,
			AgentThoughtMode:  ThoughtReasoningOptional,
			AgentMiddleMessage: false,
			AgentMaxToolCalls: 20,
		},
		LLM: LLMConfig{
			MaxTokens:                4096,
			LLMTimeoutSeconds:        120,
			AutoRetry:                true,
			MaxRetries:               3,
			MemoryLengthLimit:        50,
			EnableMemoryAbstract:     true,
			MemoryAbstractProportion: 0.5,
		},
	}
}

// Validate rejects invalid mode strings and out-of-range proportions.
func (c *AmritaConfig) Validate() error {
	switch c.Function.ToolCallingMode {
	case ToolModeAgent, ToolModeRAG, ToolModeNone:
	default:
		return fmt.Errorf("invalid tool_calling_mode %q", c.Function.ToolCallingMode)
	}
	switch c.Function.AgentThoughtMode {
	case ThoughtReasoning, ThoughtChat, ThoughtReasoningRequired, ThoughtReasoningOptional:
	default:
		return fmt.Errorf("invalid agent_thought_mode %q", c.Function.AgentThoughtMode)
	}
	if p := c.LLM.MemoryAbstractProportion; p <= 0 || p > 1 {
		return fmt.Errorf("memory_abstract_proportion %v out of range (0,1]", p)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *AmritaConfig) Clone() *AmritaConfig {
	out := *c
	if c.Function.AgentMCPServerScripts != nil {
		out.Function.AgentMCPServerScripts = append([]string(nil), c.Function.AgentMCPServerScripts...)
	}
	return &out
}
