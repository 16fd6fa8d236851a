package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/amrita-ai/amrita/pkg/models"
)

// MCPClient is the interface an MCP transport implementation must
// satisfy. The wire protocol is out of scope; the runtime only needs
// connect/list/call/close.
type MCPClient interface {
	// Connect establishes the transport and discovers tools.
	Connect(ctx context.Context) error
	// Tools returns the discovered tool schemas.
	Tools() []models.ToolFunctionSchema
	// Call invokes a tool by its original name.
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
	// Close tears the transport down. Idempotent.
	Close(ctx context.Context) error
}

// MCPRegistry tracks the clients of one session and maps tool names to
// their owning client. Colliding tool names are remapped with a session
// scoped suffix; Call translates back to the original name.
type MCPRegistry struct {
	mu       sync.Mutex
	clients  map[string]MCPClient // script/uri -> client
	owners   map[string]MCPClient // exposed tool name -> client
	original map[string]string    // exposed tool name -> original name
}

// NewMCPRegistry returns an empty registry.
func NewMCPRegistry() *MCPRegistry {
	return &MCPRegistry{
		clients:  map[string]MCPClient{},
		owners:   map[string]MCPClient{},
		original: map[string]string{},
	}
}

// Attach connects a client registered under script and indexes its
// tools. Tool names already taken are remapped to "<script>_<name>".
// Returns the schemas under their exposed names.
func (r *MCPRegistry) Attach(ctx context.Context, script string, client MCPClient) ([]models.ToolFunctionSchema, error) {
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect mcp client %q: %w", script, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[script]; exists {
		return nil, fmt.Errorf("mcp client %q already attached", script)
	}
	r.clients[script] = client

	schemas := client.Tools()
	out := make([]models.ToolFunctionSchema, 0, len(schemas))
	for _, schema := range schemas {
		name := schema.Function.Name
		exposed := name
		if _, taken := r.owners[exposed]; taken {
			exposed = script + "_" + name
			schema.Function.Name = exposed
		}
		r.owners[exposed] = client
		r.original[exposed] = name
		out = append(out, schema)
	}
	return out, nil
}

// Call routes an exposed tool name to its client, translating remapped
// names back.
func (r *MCPRegistry) Call(ctx context.Context, exposed string, args map[string]any) (string, error) {
	r.mu.Lock()
	client, ok := r.owners[exposed]
	name := r.original[exposed]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("mcp tool %q not attached", exposed)
	}
	return client.Call(ctx, name, args)
}

// Detach closes the client registered under script and drops its tools.
func (r *MCPRegistry) Detach(ctx context.Context, script string) error {
	r.mu.Lock()
	client, ok := r.clients[script]
	if ok {
		delete(r.clients, script)
		for exposed, owner := range r.owners {
			if owner == client {
				delete(r.owners, exposed)
				delete(r.original, exposed)
			}
		}
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return client.Close(ctx)
}

// CloseAll tears down every client. Used on session drop.
func (r *MCPRegistry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	clients := make([]MCPClient, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = map[string]MCPClient{}
	r.owners = map[string]MCPClient{}
	r.original = map[string]string{}
	r.mu.Unlock()

	var firstErr error
	for _, c := range clients {
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ToolNames returns the exposed tool names currently attached.
func (r *MCPRegistry) ToolNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.owners))
	for name := range r.owners {
		names = append(names, name)
	}
	return names
}
