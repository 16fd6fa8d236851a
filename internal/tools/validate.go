package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/amrita-ai/amrita/pkg/models"
)

// SchemaViolationError reports tool arguments failing their schema. The
// dispatcher turns it into a tool-result error message; it never aborts
// the turn.
type SchemaViolationError struct {
	Tool   string
	Detail string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("tool %q arguments rejected: %s", e.Tool, e.Detail)
}

// Compiled schemas are cached by their serialized form; tools are
// re-registered rarely, validated often.
var schemaCache sync.Map // string -> *jsonschema.Schema

func compileSchema(fn models.FunctionDefinitionSchema) (*jsonschema.Schema, error) {
	params := fn.Parameters
	if params.Type == "" {
		params.Type = "object"
	}
	if params.Properties == nil {
		params.Properties = map[string]models.PropertySchema{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("serialize parameters: %w", err)
	}
	key := string(raw)
	if cached, ok := schemaCache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	schema, err := jsonschema.CompileString(fn.Name+".schema.json", key)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	schemaCache.Store(key, schema)
	return schema, nil
}

// ValidateArgs parses the raw JSON argument string and validates it
// against the tool's parameter schema. Missing required fields and type
// mismatches yield a SchemaViolationError.
func ValidateArgs(t Tool, rawArgs string) (map[string]any, error) {
	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}
	var decoded any
	if err := json.Unmarshal([]byte(rawArgs), &decoded); err != nil {
		return nil, &SchemaViolationError{Tool: t.Name(), Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}

	schema, err := compileSchema(t.Schema.Function)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, &SchemaViolationError{Tool: t.Name(), Detail: err.Error()}
	}

	args, ok := decoded.(map[string]any)
	if !ok {
		return nil, &SchemaViolationError{Tool: t.Name(), Detail: "arguments must be a JSON object"}
	}
	// Fill declared defaults for absent optional fields.
	for name, prop := range t.Schema.Function.Parameters.Properties {
		if _, present := args[name]; !present && prop.Default != nil {
			args[name] = prop.Default
		}
	}
	return args, nil
}
