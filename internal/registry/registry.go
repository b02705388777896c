package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/maprgate/internal/agent"
)

// Module is the interface that all agent modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered handlers for a single application
// instance. It is explicitly constructed and passed by reference; there is
// no process-wide registry.
type Registry struct {
	handlers map[string]agent.Handler
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]agent.Handler),
	}
}

// RegisterHandler registers a handler under its own name. Registration
// happens once at startup; a duplicate name is a programmer error.
func (r *Registry) RegisterHandler(h agent.Handler) {
	name := h.Name()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("agent handler with name '%s' already registered", name))
	}
	slog.Debug("Registering agent handler.", "name", name)
	r.handlers[name] = h
}

// Lookup returns the handler registered under name. It is a pure read, safe
// for concurrent callers once the registry is populated.
func (r *Registry) Lookup(name string) (agent.Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Remove drops a handler from the registry. Used during startup when the
// configuration disables an agent; never called once traffic begins.
func (r *Registry) Remove(name string) {
	delete(r.handlers, name)
}

// Names returns the sorted names of all registered handlers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}
