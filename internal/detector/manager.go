package detector

import (
	"sync"
)

// Manager owns the active detector for a process. The active detector is
// selected by name, constructed lazily on first use and may be swapped at
// runtime. Concurrent reads of the active detector are safe while a swap is
// in flight: any given call observes either the old or the new fully
// constructed detector, never a half-swapped reference.
type Manager struct {
	registry *Registry

	mu     sync.RWMutex
	name   string
	config map[string]any
	active Detector
}

// NewManager creates a manager bound to the given registry. The named
// detector is not constructed until the first Active call.
func NewManager(registry *Registry, name string, config map[string]any) *Manager {
	return &Manager{
		registry: registry,
		name:     name,
		config:   config,
	}
}

// Active returns the currently active detector, constructing it on first use.
// Construction failures are returned to the caller and retried on the next
// call rather than cached.
func (m *Manager) Active() (Detector, error) {
	m.mu.RLock()
	if m.active != nil {
		det := m.active
		m.mu.RUnlock()
		return det, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have constructed the detector while we waited.
	if m.active != nil {
		return m.active, nil
	}

	det, err := m.registry.Get(m.name, m.config)
	if err != nil {
		return nil, err
	}
	m.active = det
	return det, nil
}

// ActiveName returns the name the active detector was selected by.
func (m *Manager) ActiveName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Use swaps the active detector. The replacement is fully constructed before
// the swap so that a construction failure surfaces to the caller and leaves
// the previous detector active. Construction happens outside the lock so
// detection calls against the current detector are not blocked by an
// expensive swap in flight.
func (m *Manager) Use(name string, config map[string]any) error {
	det, err := m.registry.Get(name, config)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.name = name
	m.config = config
	m.active = det
	m.mu.Unlock()
	return nil
}
