package compiler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrHandlerNotFound is returned by Registry.Get when no handler is
// registered under the requested id.
var ErrHandlerNotFound = errors.New("handler not found")

// Registry maps handler ids to shared Handler instances. Registration
// normally happens once at startup; lookups may run concurrently with each
// other and with late registrations.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates a new, empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// NewBuiltinRegistry returns a registry pre-populated with the built-in
// handlers.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register adds handler under handler.Name(). It panics if handler is nil,
// its name is empty, or the name is already taken. These are programming
// errors that should surface at startup.
func (r *Registry) Register(handler Handler) {
	if handler == nil {
		panic("compiler: Register called with nil handler")
	}
	name := handler.Name()
	if name == "" {
		panic("compiler: Register called with handler that returns empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("compiler: handler %q is already registered", name))
	}
	r.handlers[name] = handler
}

// Get returns the handler registered under id, or ErrHandlerNotFound
// wrapped with the id.
func (r *Registry) Get(id string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	if !ok {
		return nil, fmt.Errorf("handler %q: %w", id, ErrHandlerNotFound)
	}
	return h, nil
}

// List returns the ids of all registered handlers in alphabetical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
