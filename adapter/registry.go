package adapter

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/scitune/pkg/errors"
)

// Factory builds a fresh adapter.
type Factory func() Adapter

// Registry maps family names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in families with their
// default settings.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.factories[LinearName] = func() Adapter { return NewLinear() }
	r.factories[BoostedTreesName] = func() Adapter { return NewBoostedTrees() }
	r.factories[RandomForestName] = func() Adapter { return NewRandomForest() }
	return r
}

// Register adds a family. Names must be unique.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return errors.NewValidationError("family", "name and factory are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return errors.NewValidationError("family", "already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New builds the named family.
func (r *Registry) New(name string) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewValidationError("family", "unknown model family", name)
	}
	return f(), nil
}

// Names returns the registered family names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
