package ingest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/errors"
)

// Factory builds a connector from the loaded settings.
type Factory func(settings *conf.Settings) Connector

// ErrUnknownConnector is returned when a connector name was never registered.
var ErrUnknownConnector = errors.NewStd("unknown connector")

// Registry maps connector names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named connector factory, replacing any previous entry.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get builds the named connector from settings.
func (r *Registry) Get(name string, settings *conf.Settings) (Connector, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(fmt.Errorf("%w: %q", ErrUnknownConnector, name)).
			Component("ingest").
			Category(errors.CategoryValidation).
			Context("connector", name).
			Build()
	}
	return factory(settings), nil
}

// ListNames returns the registered connector names in sorted order.
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

var defaultRegistry = NewRegistry()

// Default returns the process-wide connector registry.
func Default() *Registry {
	return defaultRegistry
}
