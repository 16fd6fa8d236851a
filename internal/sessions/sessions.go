// Package sessions implements the per-conversation resource registry:
// each session owns its memory, tool registry, preset registry, optional
// config override and MCP clients.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/amrita-ai/amrita/internal/preset"
	"github.com/amrita-ai/amrita/internal/tools"
	"github.com/amrita-ai/amrita/pkg/models"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// SessionData is one isolated conversation container. Fields are
// independently mutable; the registry owns the struct and destroys it on
// Drop.
type SessionData struct {
	ID      string
	Memory  *models.MemoryModel
	Tools   *tools.Registry
	Presets *preset.Registry
	// Config shadows the global configuration when non-nil.
	Config *models.AmritaConfig
	MCP    *MCPRegistry

	mu          sync.Mutex
	initialized bool
}

// Lock serializes turn-level mutation of the session. The chat engine
// holds it for the duration of a turn's memory commit.
func (s *SessionData) Lock()   { s.mu.Lock() }
func (s *SessionData) Unlock() { s.mu.Unlock() }

// MCPConnector materializes an MCP client for a configured server
// script. Wire transports are supplied by the embedding application.
type MCPConnector func(script string) (MCPClient, error)

// Registry is the session store. A process-wide default exists, but
// tests and embedders may construct their own.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*SessionData
	connect  MCPConnector
	logger   *slog.Logger
}

// NewRegistry creates an empty session registry. A nil logger falls
// back to slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: map[string]*SessionData{},
		logger:   logger.With("component", "sessions"),
	}
}

// SetMCPConnector installs the factory used by Init to materialize MCP
// clients from configured server scripts.
func (r *Registry) SetMCPConnector(fn MCPConnector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connect = fn
}

// New creates a session with fresh, isolated resources and returns its
// ID. The optional cfg becomes the session's config override.
func (r *Registry) New(cfg *models.AmritaConfig) string {
	id := uuid.New().String()
	data := &SessionData{
		ID:      id,
		Memory:  models.NewMemoryModel(),
		Tools:   tools.NewRegistry(),
		Presets: preset.NewRegistry(),
		MCP:     NewMCPRegistry(),
	}
	if cfg != nil {
		data.Config = cfg.Clone()
	}
	r.mu.Lock()
	r.sessions[id] = data
	r.mu.Unlock()
	r.logger.Debug("session created", "session_id", id)
	return id
}

// Get returns the session data for id.
func (r *Registry) Get(id string) (*SessionData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s, nil
}

// Init materializes the session's MCP clients per its effective config
// and registers their tools into the session registry. Idempotent.
func (r *Registry) Init(ctx context.Context, id string, globalCfg *models.AmritaConfig) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()
	if s.initialized {
		return nil
	}

	cfg := s.Config
	if cfg == nil {
		cfg = globalCfg
	}
	if cfg != nil && cfg.Function.AgentMCPClientEnable {
		r.mu.RLock()
		connect := r.connect
		r.mu.RUnlock()
		if connect == nil {
			return fmt.Errorf("session %q: mcp enabled but no connector installed", id)
		}
		for _, script := range cfg.Function.AgentMCPServerScripts {
			client, err := connect(script)
			if err != nil {
				return fmt.Errorf("session %q: build mcp client %q: %w", id, script, err)
			}
			schemas, err := s.MCP.Attach(ctx, script, client)
			if err != nil {
				return fmt.Errorf("session %q: %w", id, err)
			}
			for _, schema := range schemas {
				if err := s.Tools.Register(mcpTool(s.MCP, schema)); err != nil {
					return fmt.Errorf("session %q: register mcp tool: %w", id, err)
				}
			}
			r.logger.Info("mcp server attached", "session_id", id, "script", script)
		}
	}

	s.initialized = true
	return nil
}

// mcpTool wraps an attached MCP tool as a registry tool dispatching
// through the session's MCP registry.
func mcpTool(reg *MCPRegistry, schema models.ToolFunctionSchema) tools.Tool {
	name := schema.Function.Name
	return tools.Tool{
		Schema: schema,
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			return reg.Call(ctx, name, args)
		},
	}
}

// Drop tears down the session's MCP clients and removes it. Idempotent:
// dropping an unknown ID is a no-op.
func (r *Registry) Drop(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := s.MCP.CloseAll(ctx); err != nil {
		r.logger.Warn("mcp teardown failed", "session_id", id, "error", err)
	}
	r.logger.Debug("session dropped", "session_id", id)
	return nil
}

// List returns the live session IDs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var defaultRegistry = NewRegistry(nil)

// Default returns the process-wide session registry.
func Default() *Registry { return defaultRegistry }
