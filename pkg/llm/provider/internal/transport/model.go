package transport

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyModel is returned when switching to a blank model name.
var ErrEmptyModel = errors.New("model name must not be empty")

// Model is a concurrency-safe holder for a provider's active model.
type Model struct {
	mu   sync.RWMutex
	name string
}

// NewModel creates a holder with name, or fallback when name is blank.
func NewModel(name, fallback string) *Model {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	return &Model{name: name}
}

// Get returns the active model.
func (m *Model) Get() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Set replaces the active model.
func (m *Model) Set(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyModel
	}
	m.mu.Lock()
	m.name = name
	m.mu.Unlock()
	return nil
}
