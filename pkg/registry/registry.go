package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Function is a long-running integration. It receives a snapshot of the session
// state and returns values to merge back into it. Keys may be dotted paths.
type Function func(ctx context.Context, state map[string]any) (map[string]any, error)

// Registry manages the available integration functions.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Function),
	}
}

// Register adds a function to the registry.
// If a function with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
}

// Lookup returns the first registered function among refs.
func (r *Registry) Lookup(refs ...string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ref := range refs {
		if fn, ok := r.functions[ref]; ok && ref != "" {
			return fn, true
		}
	}
	return nil, false
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for n := range r.functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Execute looks up a function by name and executes it.
// Returns an error if the function is not found.
func (r *Registry) Execute(ctx context.Context, name string, state map[string]any) (map[string]any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("function not found: %s", name)
	}
	return fn(ctx, state)
}
