// Package config holds the process-wide runtime configuration registry.
// The registry starts uninitialized; Set installs a configuration and Get
// fails until it has. Sessions may carry an override that shadows the
// global value, resolved through Resolve.
package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/amrita-ai/amrita/pkg/models"
)

// ErrNotInitialized is returned by Get before the first Set.
var ErrNotInitialized = errors.New("config not initialized: call SetConfig first")

// Registry guards the current configuration. Readers get deep copies so
// a held snapshot never observes later writes.
type Registry struct {
	mu  sync.RWMutex
	cfg *models.AmritaConfig
}

// NewRegistry returns an uninitialized registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Set validates and installs cfg as the current configuration, replacing
// any previous one.
func (r *Registry) Set(cfg *models.AmritaConfig) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg.Clone()
	return nil
}

// Get returns a copy of the current configuration.
func (r *Registry) Get() (*models.AmritaConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return nil, ErrNotInitialized
	}
	return r.cfg.Clone(), nil
}

// Ready reports whether Set has been called.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg != nil
}

// Resolve returns the session override when present, else the global
// configuration.
func (r *Registry) Resolve(override *models.AmritaConfig) (*models.AmritaConfig, error) {
	if override != nil {
		return override.Clone(), nil
	}
	return r.Get()
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }
