package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Registry is the closed capability table handed to the orchestration
// loop. Names are unique; registration happens at construction time and
// the table is read-only once the agent serves traffic.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. A duplicate name
// fails construction with *DuplicateToolError.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool, failing with *DuplicateToolError if the name is
// already taken.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return &DuplicateToolError{Tool: t.Name()}
	}
	r.tools[t.Name()] = t

	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name, so the tool catalog
// presented to the engine is stable across calls.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke decodes the serialized JSON arguments and calls the named tool.
//
// Error semantics:
//
//	name not registered       -> *UnknownToolError
//	argument decode failure   -> *ToolExecutionError
//	validation / tool failure -> *ToolExecutionError (wrapping the cause)
//
// Invoke imposes no timeout of its own; the orchestration loop passes a
// deadline-bearing ctx.
func (r *Registry) Invoke(ctx context.Context, name, arguments string) (string, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return "", &UnknownToolError{Tool: name}
	}

	args := map[string]any{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", &ToolExecutionError{Tool: name, Err: fmt.Errorf("decode arguments: %w", err)}
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		return "", &ToolExecutionError{Tool: name, Err: err}
	}

	return result, nil
}
