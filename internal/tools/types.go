// Package tools implements the tool registry and dispatcher: layered
// global/session registries, schema-validated invocation, conditional
// enablement and the simple-tool builder.
package tools

import (
	"context"
	"fmt"

	"github.com/amrita-ai/amrita/pkg/models"
)

// Emitter pushes side chunks to the turn's consumer. The chat turn
// implements it; custom-run tools use it to stream progress text.
type Emitter interface {
	YieldResponse(chunk string) error
}

// Invocation is the context handed to a custom-run tool.
type Invocation struct {
	// Data is the parsed, schema-validated argument object.
	Data map[string]any
	// Emitter streams side responses to the user. Nil outside a turn.
	Emitter Emitter
}

// RunFunc is a default-mode tool body: parsed args in, string result out.
type RunFunc func(ctx context.Context, args map[string]any) (string, error)

// CustomRunFunc is a custom-context tool body. hasResult=false means no
// tool-result message is appended to memory.
type CustomRunFunc func(ctx context.Context, inv *Invocation) (result string, hasResult bool, err error)

// ListContext carries the state enable-if predicates and mode filtering
// see on each listing.
type ListContext struct {
	SessionID string
	Config    *models.AmritaConfig
}

// EnableIf decides per call whether a tool is offered to the model.
type EnableIf func(lc ListContext) bool

// Tool bundles a schema with its body. Exactly one of Run or CustomRun
// must be set. Reasoning marks tools hidden under agent_thought_mode=chat.
type Tool struct {
	Schema    models.ToolFunctionSchema
	Run       RunFunc
	CustomRun CustomRunFunc
	EnableIf  EnableIf
	Reasoning bool
}

// Name returns the function name of the tool.
func (t Tool) Name() string { return t.Schema.Function.Name }

// IsCustom reports whether the tool runs in custom-context mode.
func (t Tool) IsCustom() bool { return t.CustomRun != nil }

func (t Tool) validate() error {
	if t.Name() == "" {
		return fmt.Errorf("tool schema missing function name")
	}
	if (t.Run == nil) == (t.CustomRun == nil) {
		return fmt.Errorf("tool %q must set exactly one of Run or CustomRun", t.Name())
	}
	return nil
}
