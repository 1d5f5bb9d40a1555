// Package component manages the component registries shared across a
// process that runs more than one team: LLM clients and tools are expensive
// to construct and safe to reuse, so a ComponentManager builds them once per
// team definition for lookups, and hands out a new store.Store per run. That
// store is built by TeamConfig.Build with its own LLM clients and tools; it
// does not use the manager's cached registries.
package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowteam/core/config"
	"github.com/flowteam/core/llms"
	"github.com/flowteam/core/store"
	"github.com/flowteam/core/tools"
)

// ComponentManager owns one team's built LLM and tool registries and keeps
// them alive until Reload replaces them, so a long-running process can look
// up an LLM client or tool without reconstructing it or redoing MCP tool
// discovery. Stores returned by NewStore are built separately and do not
// share these registries.
type ComponentManager struct {
	mu sync.RWMutex

	teamConfig   *config.TeamConfig
	llmRegistry  *llms.Registry
	toolRegistry *tools.Registry
	toolsByName  map[string]tools.Tool
}

// NewComponentManager builds the LLM and tool registries for a team
// definition up front.
func NewComponentManager(ctx context.Context, teamConfig *config.TeamConfig) (*ComponentManager, error) {
	llmRegistry, err := config.BuildLLMRegistry(teamConfig.LLMs)
	if err != nil {
		return nil, fmt.Errorf("component: build llm registry: %w", err)
	}

	toolRegistry, toolsByName, err := config.BuildToolRegistry(ctx, teamConfig.Tools)
	if err != nil {
		return nil, fmt.Errorf("component: build tool registry: %w", err)
	}

	return &ComponentManager{
		teamConfig:   teamConfig,
		llmRegistry:  llmRegistry,
		toolRegistry: toolRegistry,
		toolsByName:  toolsByName,
	}, nil
}

// TeamConfig returns the team definition this manager was built from.
func (cm *ComponentManager) TeamConfig() *config.TeamConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.teamConfig
}

// LLMRegistry returns the shared LLM client registry.
func (cm *ComponentManager) LLMRegistry() *llms.Registry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.llmRegistry
}

// ToolRegistry returns the team-wide tool registry (the superset every
// agent's scoped view is carved out of).
func (cm *ComponentManager) ToolRegistry() *tools.Registry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.toolRegistry
}

// GetLLM looks up a named LLM client from the shared registry.
func (cm *ComponentManager) GetLLM(name string) (llms.Client, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.llmRegistry.Get(name)
}

// Reload rebuilds both registries from an updated team definition, for use
// alongside config.Watcher: a hot-reloaded YAML file produces a new
// *config.TeamConfig, and this swaps in fresh clients and tools without
// disturbing runs already in flight on the old registries.
func (cm *ComponentManager) Reload(ctx context.Context, teamConfig *config.TeamConfig) error {
	llmRegistry, err := config.BuildLLMRegistry(teamConfig.LLMs)
	if err != nil {
		return fmt.Errorf("component: reload llm registry: %w", err)
	}
	toolRegistry, toolsByName, err := config.BuildToolRegistry(ctx, teamConfig.Tools)
	if err != nil {
		return fmt.Errorf("component: reload tool registry: %w", err)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.teamConfig = teamConfig
	cm.llmRegistry = llmRegistry
	cm.toolRegistry = toolRegistry
	cm.toolsByName = toolsByName
	return nil
}

// NewStore builds a fresh, unstarted store.Store — agents, tasks, and the
// execution strategy — from the manager's current team definition via
// TeamConfig.Build, which constructs new LLM clients and tools for it; the
// manager's cached registries are not used. Call this once per run.
func (cm *ComponentManager) NewStore(ctx context.Context) (*store.Store, error) {
	cm.mu.RLock()
	teamConfig := cm.teamConfig
	cm.mu.RUnlock()
	return teamConfig.Build(ctx)
}
