package tool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentkernel/core"
)

// Registry is a thread-safe collection of tools keyed by name. A registry can
// be shared across kernels; registration after kernel construction is visible
// to subsequent turns.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool. It fails on an empty name or a duplicate registration.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("register tool: nil tool")
	}

	name := t.Name()
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("register tool: %q already registered", name)
	}

	r.tools[name] = t

	return nil
}

// MustRegister is Register that panics on error. Intended for static setup.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Deregister removes a tool by name. Removing an unknown name is a no-op.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tools, name)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]

	return t, ok
}

// Resolve returns the tool registered under name or an error naming the
// missing tool.
func (r *Registry) Resolve(name string) (Tool, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}

	return t, nil
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })

	return out
}

// Names returns all registered tool names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}

	sort.Strings(out)

	return out
}

// Schemas returns the wire declarations for all registered tools sorted by name.
func (r *Registry) Schemas() []core.ToolSchema {
	tools := r.List()

	out := make([]core.ToolSchema, 0, len(tools))
	for _, t := range tools {
		out = append(out, Schema(t))
	}

	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}
