// Package preset manages named model presets: a keyed registry with a
// nullable default, JSON/YAML persistence and grouped registries for
// multi-tenant setups.
package preset

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/amrita-ai/amrita/pkg/models"
)

var (
	// ErrNotFound is returned when a named preset does not exist.
	ErrNotFound = errors.New("preset not found")
	// ErrNoDefault is returned by Default when no default has been set.
	ErrNoDefault = errors.New("no default preset set")
)

// Registry is a concurrency-safe map of name to preset plus the name of
// the default preset.
type Registry struct {
	mu          sync.RWMutex
	presets     map[string]models.ModelPreset
	defaultName string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{presets: map[string]models.ModelPreset{}}
}

// Add stores a preset under its name, replacing any existing entry.
func (r *Registry) Add(p models.ModelPreset) error {
	if p.Name == "" {
		return fmt.Errorf("preset name is required")
	}
	p = p.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[p.Name] = p.Clone()
	return nil
}

// Remove deletes a preset. Removing the default clears the default name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.presets, name)
	if r.defaultName == name {
		r.defaultName = ""
	}
}

// Get returns the preset registered under name.
func (r *Registry) Get(name string) (models.ModelPreset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[name]
	if !ok {
		return models.ModelPreset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p.Clone(), nil
}

// Default returns the preset named by SetDefault.
func (r *Registry) Default() (models.ModelPreset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return models.ModelPreset{}, ErrNoDefault
	}
	p, ok := r.presets[r.defaultName]
	if !ok {
		return models.ModelPreset{}, fmt.Errorf("%w: default %q", ErrNotFound, r.defaultName)
	}
	return p.Clone(), nil
}

// SetDefault marks an existing preset as the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presets[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	r.defaultName = name
	return nil
}

// List returns the registered preset names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered presets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presets)
}

// MultiRegistry groups independent registries by name. Group returns the
// registry for a group, creating it on first use.
type MultiRegistry struct {
	mu     sync.Mutex
	groups map[string]*Registry
}

// NewMultiRegistry returns an empty group map.
func NewMultiRegistry() *MultiRegistry {
	return &MultiRegistry{groups: map[string]*Registry{}}
}

// Group returns the registry for name, creating it if absent.
func (m *MultiRegistry) Group(name string) *Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.groups[name]
	if !ok {
		r = NewRegistry()
		m.groups[name] = r
	}
	return r
}

// Groups returns the existing group names in sorted order.
func (m *MultiRegistry) Groups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.groups))
	for name := range m.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
