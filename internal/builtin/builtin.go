// Package builtin registers the agent's built-in tools: the stop marker,
// the reasoning step and the user-facing progress message.
package builtin

import (
	"context"
	"fmt"

	"github.com/amrita-ai/amrita/internal/tools"
	"github.com/amrita-ai/amrita/pkg/models"
)

// Built-in tool names. The chat engine special-cases StopToolName and
// ReasoningToolName.
const (
	StopToolName      = "agent_stop"
	ReasoningToolName = "think_and_reason"
	ProcessToolName   = "processing_message"
)

// StopTool marks the end of the tool-use phase. The engine intercepts it
// before dispatch; the body only echoes the optional summary for
// completeness.
func StopTool() tools.Tool {
	return tools.Tool{
		Schema: models.NewToolFunctionSchema(models.FunctionDefinitionSchema{
			Name: StopToolName,
			Description: "Call this tool to indicate that you have gathered enough information and are ready to formulate the final answer to the user.\n" +
				" After calling this, you should NOT call any other tools, but directly provide the completion",
			Parameters: models.FunctionParametersSchema{
				Type: "object",
				Properties: map[string]models.PropertySchema{
					"result": {
						Type:        "string",
						Description: "Simply illustrate what you did during the chat task.(Optional)",
					},
				},
				Required: []string{},
			},
		}),
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			result, _ := args["result"].(string)
			return result, nil
		},
	}
}

// ReasoningTool records a reasoning step; its output becomes a
// tool-result message and the loop continues.
func ReasoningTool() tools.Tool {
	t := tools.Tool{
		Schema: models.NewToolFunctionSchema(models.FunctionDefinitionSchema{
			Name:        ReasoningToolName,
			Description: "Think about what you should do next, always call this tool to think when completing a tool call.",
			Parameters: models.FunctionParametersSchema{
				Type: "object",
				Properties: map[string]models.PropertySchema{
					"content": {
						Type:        "string",
						Description: "What you should do next",
					},
				},
				Required: []string{"content"},
			},
		}),
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			content, _ := args["content"].(string)
			return content, nil
		},
	}
	t.Reasoning = true
	return t
}

// ProcessMessageTool streams a progress message to the user mid-turn.
// Enabled only when agent_middle_message is configured.
func ProcessMessageTool() tools.Tool {
	return tools.Tool{
		Schema: models.NewToolFunctionSchema(models.FunctionDefinitionSchema{
			Name:        ProcessToolName,
			Description: "Describe what the agent is currently doing and express the agent's internal thoughts to the user. Use this when you need to communicate your current actions or internal reasoning to the user, not for general completion.",
			Parameters: models.FunctionParametersSchema{
				Type: "object",
				Properties: map[string]models.PropertySchema{
					"content": {
						Type:        "string",
						Description: "Message content, describe in the tone of system instructions what you are doing or interacting with the user.",
					},
				},
				Required: []string{"content"},
			},
		}),
		CustomRun: func(ctx context.Context, inv *tools.Invocation) (string, bool, error) {
			msg, _ := inv.Data["content"].(string)
			if inv.Emitter != nil {
				if err := inv.Emitter.YieldResponse(msg); err != nil {
					return "", false, err
				}
			}
			return fmt.Sprintf("Sent a message to user:\n\n```text\n%s\n```\n", msg), true, nil
		},
		EnableIf: func(lc tools.ListContext) bool {
			return lc.Config != nil && lc.Config.Function.AgentMiddleMessage
		},
	}
}

// Register installs all built-in tools into the registry.
func Register(r *tools.Registry) error {
	for _, t := range []tools.Tool{StopTool(), ReasoningTool(), ProcessMessageTool()} {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("register builtin %q: %w", t.Name(), err)
		}
	}
	return nil
}
