package tools

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/amrita-ai/amrita/pkg/models"
)

// ErrNotFound is returned when a named tool does not exist.
var ErrNotFound = errors.New("tool not found")

type entry struct {
	tool     Tool
	disabled bool
}

// Registry is a concurrency-safe map of tool name to tool. Registration
// compiles the argument schema so malformed schemas fail early.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]*entry{}}
}

// Register stores the tool, replacing any previous entry of the same
// name.
func (r *Registry) Register(t Tool) error {
	if err := t.validate(); err != nil {
		return err
	}
	if _, err := compileSchema(t.Schema.Function); err != nil {
		return fmt.Errorf("tool %q schema: %w", t.Name(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = &entry{tool: t}
	return nil
}

// Remove deletes a tool by name; unknown names are a no-op.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.tool, nil
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// SetEnabled hard-toggles a tool regardless of its enable-if predicate.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tools[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	e.disabled = !enabled
	return nil
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// active returns the tools passing the hard toggle and enable-if filter.
func (r *Registry) active(lc ListContext) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, e := range r.tools {
		if e.disabled {
			continue
		}
		if e.tool.EnableIf != nil && !e.tool.EnableIf(lc) {
			continue
		}
		out = append(out, e.tool)
	}
	return out
}

// MultiRegistry layers a per-session registry over the global one.
// Session tools shadow global tools of the same name.
type MultiRegistry struct {
	Global  *Registry
	Session *Registry
}

// ListActive unions global and session tools, applies enablement filters
// and the tool-calling mode:
//
//	none: empty list
//	agent: all enabled tools
//	rag: all enabled tools; the engine withdraws them after the first
//	invocation of the turn
//
// Under agent_thought_mode=chat, reasoning tools are hidden.
func (m MultiRegistry) ListActive(lc ListContext) []Tool {
	mode := models.ToolModeAgent
	hideReasoning := false
	if lc.Config != nil {
		mode = lc.Config.Function.ToolCallingMode
		hideReasoning = lc.Config.Function.AgentThoughtMode == models.ThoughtChat
	}
	if mode == models.ToolModeNone {
		return nil
	}

	merged := map[string]Tool{}
	if m.Global != nil {
		for _, t := range m.Global.active(lc) {
			merged[t.Name()] = t
		}
	}
	if m.Session != nil {
		for _, t := range m.Session.active(lc) {
			merged[t.Name()] = t
		}
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Tool, 0, len(names))
	for _, name := range names {
		t := merged[name]
		if hideReasoning && t.Reasoning {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Resolve finds a tool by name, session registry first.
func (m MultiRegistry) Resolve(name string) (Tool, error) {
	if m.Session != nil {
		if t, err := m.Session.Get(name); err == nil {
			return t, nil
		}
	}
	if m.Global != nil {
		return m.Global.Get(name)
	}
	return Tool{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Schemas extracts the wire schemas of the given tools.
func Schemas(list []Tool) []models.ToolFunctionSchema {
	out := make([]models.ToolFunctionSchema, 0, len(list))
	for _, t := range list {
		out = append(out, t.Schema)
	}
	return out
}
