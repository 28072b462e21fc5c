package detector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/astralabs/astra-go/internal/errors"
)

// Registry maps detector names to factories. Names are opaque strings,
// lookups of unregistered names fail with ErrUnknownDetector.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty detector registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under the given name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get instantiates a detector by name.
func (r *Registry) Get(name string, config map[string]any) (Detector, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.New(fmt.Errorf("%w: %q", ErrUnknownDetector, name)).
			Component("detector").
			Category(errors.CategoryValidation).
			Context("detector_name", name).
			Build()
	}

	det, err := factory(config)
	if err != nil {
		return nil, errors.New(fmt.Errorf("constructing detector %q: %w", name, err)).
			Component("detector").
			Category(errors.CategoryDetectorInit).
			Context("detector_name", name).
			Build()
	}
	return det, nil
}

// ListNames returns the registered detector names in sorted order.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultRegistry holds the built-in detector variants. Variants register
// themselves in their init functions.
var defaultRegistry = NewRegistry()

// Default returns the process-wide registry with the built-in variants.
func Default() *Registry {
	return defaultRegistry
}
