package amrita

import (
	"github.com/amrita-ai/amrita/internal/tools"
)

// Tool registration surface.
type (
	Tool          = tools.Tool
	SimpleBuilder = tools.SimpleBuilder
)

// OnTools registers a tool in the runtime's global registry.
func (r *Runtime) OnTools(t Tool) error { return r.tools.Register(t) }

// SimpleTool starts a builder for a string-parameter tool; finish it
// with Handle and register the result via OnTools.
func SimpleTool(name, description string) *SimpleBuilder {
	return tools.NewSimple(name, description)
}

// OnTools registers a tool on the default runtime.
func OnTools(t Tool) error { return Default().OnTools(t) }
