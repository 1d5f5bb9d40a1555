package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// sourceEntry binds a discovered tool back to the source that served it, so
// a name conflict or a source removal can be resolved.
type sourceEntry struct {
	tool   Tool
	source ToolSource
}

// Registry aggregates tools from any number of ToolSource instances behind
// one name → Tool lookup, the set an agent's tool list is built from.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]ToolSource
	entries map[string]sourceEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]ToolSource),
		entries: make(map[string]sourceEntry),
	}
}

// AddSource discovers tools from source and merges them in. A tool name
// already served by another source is kept and the conflict logged rather
// than silently overwritten.
func (r *Registry) AddSource(ctx context.Context, source ToolSource) error {
	if err := source.DiscoverTools(ctx); err != nil {
		return fmt.Errorf("discover tools from %s: %w", source.GetName(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources[source.GetName()] = source
	for _, info := range source.ListTools() {
		if existing, ok := r.entries[info.Name]; ok {
			slog.Warn("tool name conflict, keeping first registration",
				"tool", info.Name, "existing_source", existing.source.GetName(), "new_source", source.GetName())
			continue
		}
		tool, ok := source.GetTool(info.Name)
		if !ok {
			continue
		}
		r.entries[info.Name] = sourceEntry{tool: tool, source: source}
	}
	return nil
}

// RemoveSource drops a source and every tool it contributed.
func (r *Registry) RemoveSource(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sources, name)
	for toolName, e := range r.entries {
		if e.source.GetName() == name {
			delete(r.entries, toolName)
		}
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// List returns every registered tool's metadata, sorted by name so an
// agent's rendered tool list is stable across calls.
func (r *Registry) List() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ToolInfo, 0, len(r.entries))
	for name, e := range r.entries {
		info := e.tool.GetInfo()
		info.Name = name
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Execute looks up a tool by name and runs it, returning a failed ToolResult
// (not just an error) when the name is unknown so callers can fold it
// straight into an observation without a type switch.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		err := fmt.Errorf("tool %q not registered", call.Name)
		return ToolResult{Success: false, Error: err.Error(), ToolName: call.Name}, err
	}
	return tool.Execute(ctx, call.Parameters)
}
