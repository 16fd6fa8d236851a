package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is the outcome of one tool invocation.
type Result struct {
	Content string
	// Append is false when a custom-run tool produced no result message.
	Append bool
}

// Invoke validates the raw arguments and runs the tool. Schema failures
// surface as *SchemaViolationError so callers can degrade them into
// tool-result error messages.
func Invoke(ctx context.Context, t Tool, rawArgs string, emitter Emitter) (Result, error) {
	args, err := ValidateArgs(t, rawArgs)
	if err != nil {
		return Result{}, err
	}

	if t.IsCustom() {
		content, hasResult, err := t.CustomRun(ctx, &Invocation{Data: args, Emitter: emitter})
		if err != nil {
			return Result{}, fmt.Errorf("tool %q: %w", t.Name(), err)
		}
		return Result{Content: content, Append: hasResult}, nil
	}

	content, err := t.Run(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %q: %w", t.Name(), err)
	}
	return Result{Content: content, Append: true}, nil
}

// CoerceResult renders a non-string tool return as JSON. Strings pass
// through unchanged.
func CoerceResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
