package models

// PropertySchema describes a single tool parameter. The honored subset of
// JSON-Schema: primitive types, enum, default, array items and nested
// object properties.
type PropertySchema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Enum        []any                     `json:"enum,omitempty"`
	Default     any                       `json:"default,omitempty"`
	Items       *PropertySchema           `json:"items,omitempty"`
	Properties  map[string]PropertySchema `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// FunctionParametersSchema is the "parameters" object of a function
// definition. Type is always "object".
type FunctionParametersSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// FunctionDefinitionSchema is one callable function as advertised to the
// model.
type FunctionDefinitionSchema struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  FunctionParametersSchema `json:"parameters"`
}

// ToolFunctionSchema is the wire wrapper for a function tool.
type ToolFunctionSchema struct {
	Type     string                   `json:"type"` // always "function"
	Strict   bool                     `json:"strict,omitempty"`
	Function FunctionDefinitionSchema `json:"function"`
}

// NewToolFunctionSchema wraps a function definition in the wire envelope.
func NewToolFunctionSchema(fn FunctionDefinitionSchema) ToolFunctionSchema {
	if fn.Parameters.Type == "" {
		fn.Parameters.Type = "object"
	}
	if fn.Parameters.Properties == nil {
		fn.Parameters.Properties = map[string]PropertySchema{}
	}
	return ToolFunctionSchema{Type: "function", Function: fn}
}
