// Package adapter defines the provider-agnostic model-adapter contract
// and the protocol registry that binds preset protocol tags to adapter
// constructors. The reference OpenAI-compatible adapter lives here too.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/amrita-ai/amrita/pkg/models"
)

// ErrUnknownProtocol is returned when no adapter is bound to a preset's
// protocol tag.
var ErrUnknownProtocol = errors.New("unknown adapter protocol")

// ErrProtocolRegistered is returned when a tag is already bound and the
// registration did not ask for override.
var ErrProtocolRegistered = errors.New("adapter protocol already registered")

// Chunk is one element of the adapter's lazy response sequence: zero or
// more content deltas, then exactly one terminal element carrying either
// Final or Err. The channel closes after the terminal element.
type Chunk struct {
	Delta string
	Final *models.UniResponse
	Err   error
}

// Adapter is a provider-specific implementation of the streaming
// chat-completion contract, constructed per preset.
type Adapter interface {
	// CallAPI issues one completion. With streaming disabled in the
	// preset the sequence holds the terminal element only.
	CallAPI(ctx context.Context, messages []models.Message, tools []models.ToolFunctionSchema) (<-chan Chunk, error)
}

// Constructor builds an adapter for a preset under the given LLM limits.
type Constructor func(preset models.ModelPreset, cfg models.LLMConfig) (Adapter, error)

// Registry maps protocol tags to adapter constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty protocol registry.
func NewRegistry() *Registry {
	return &Registry{ctors: map[string]Constructor{}}
}

// Register binds the constructor under one or more protocol tags. A tag
// already bound is an error unless override is set.
func (r *Registry) Register(ctor Constructor, override bool, tags ...string) error {
	if ctor == nil {
		return fmt.Errorf("adapter constructor must not be nil")
	}
	if len(tags) == 0 {
		return fmt.Errorf("at least one protocol tag is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !override {
		for _, tag := range tags {
			if _, exists := r.ctors[tag]; exists {
				return fmt.Errorf("%w: %q", ErrProtocolRegistered, tag)
			}
		}
	}
	for _, tag := range tags {
		r.ctors[tag] = ctor
	}
	return nil
}

// Resolve returns the constructor bound to the preset's protocol tag.
func (r *Registry) Resolve(preset models.ModelPreset) (Constructor, error) {
	tag := preset.Protocol
	if tag == "" {
		tag = "__main__"
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, tag)
	}
	return ctor, nil
}

// Protocols returns the bound tags in sorted order.
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.ctors))
	for tag := range r.ctors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide protocol registry.
func Default() *Registry { return defaultRegistry }
