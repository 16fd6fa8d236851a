package tools

import (
	"context"

	"github.com/amrita-ai/amrita/pkg/models"
)

// SimpleBuilder derives a tool schema from declared parameters, the
// hand-written-schema equivalent for plain functions.
type SimpleBuilder struct {
	name        string
	description string
	props       map[string]models.PropertySchema
	required    []string
	enableIf    EnableIf
}

// NewSimple starts a simple-tool declaration.
func NewSimple(name, description string) *SimpleBuilder {
	return &SimpleBuilder{
		name:        name,
		description: description,
		props:       map[string]models.PropertySchema{},
	}
}

// String declares a required string parameter.
func (b *SimpleBuilder) String(name, description string) *SimpleBuilder {
	return b.param(name, "string", description, true)
}

// OptString declares an optional string parameter.
func (b *SimpleBuilder) OptString(name, description string) *SimpleBuilder {
	return b.param(name, "string", description, false)
}

// Number declares a required numeric parameter. Integer-typed function
// parameters map to "number" on the wire.
func (b *SimpleBuilder) Number(name, description string) *SimpleBuilder {
	return b.param(name, "number", description, true)
}

// Bool declares a required boolean parameter.
func (b *SimpleBuilder) Bool(name, description string) *SimpleBuilder {
	return b.param(name, "boolean", description, true)
}

// Enum declares a required string parameter restricted to values.
func (b *SimpleBuilder) Enum(name, description string, values ...string) *SimpleBuilder {
	anyVals := make([]any, len(values))
	for i, v := range values {
		anyVals[i] = v
	}
	b.props[name] = models.PropertySchema{Type: "string", Description: description, Enum: anyVals}
	b.required = append(b.required, name)
	return b
}

// EnableIf attaches a conditional-enablement predicate.
func (b *SimpleBuilder) EnableIf(fn EnableIf) *SimpleBuilder {
	b.enableIf = fn
	return b
}

func (b *SimpleBuilder) param(name, typ, description string, required bool) *SimpleBuilder {
	b.props[name] = models.PropertySchema{Type: typ, Description: description}
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// Handle finishes the declaration with a string-returning body.
func (b *SimpleBuilder) Handle(fn RunFunc) Tool {
	return Tool{Schema: b.schema(), Run: fn, EnableIf: b.enableIf}
}

// HandleAny finishes the declaration with a body returning any value;
// non-string returns are coerced via JSON serialization.
func (b *SimpleBuilder) HandleAny(fn func(ctx context.Context, args map[string]any) (any, error)) Tool {
	run := func(ctx context.Context, args map[string]any) (string, error) {
		v, err := fn(ctx, args)
		if err != nil {
			return "", err
		}
		return CoerceResult(v), nil
	}
	return Tool{Schema: b.schema(), Run: run, EnableIf: b.enableIf}
}

func (b *SimpleBuilder) schema() models.ToolFunctionSchema {
	return models.NewToolFunctionSchema(models.FunctionDefinitionSchema{
		Name:        b.name,
		Description: b.description,
		Parameters: models.FunctionParametersSchema{
			Type:       "object",
			Properties: b.props,
			Required:   b.required,
		},
	})
}
