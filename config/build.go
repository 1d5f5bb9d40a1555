package config

import (
	"context"
	"fmt"

	"github.com/flowteam/core/agent"
	"github.com/flowteam/core/llms"
	"github.com/flowteam/core/store"
	"github.com/flowteam/core/strategy"
	"github.com/flowteam/core/task"
	"github.com/flowteam/core/tools"
)

// Build constructs the LLM clients, tool sources, agents, tasks, and
// execution strategy described by cfg, registers them on a new store.Store,
// and returns it unstarted — the caller still calls Store.Start with the
// run's inputs.
func (cfg *TeamConfig) Build(ctx context.Context) (*store.Store, error) {
	llmRegistry, err := BuildLLMRegistry(cfg.LLMs)
	if err != nil {
		return nil, err
	}

	toolRegistry, toolsByName, err := BuildToolRegistry(ctx, cfg.Tools)
	if err != nil {
		return nil, err
	}

	agentsByName := make(map[string]*agent.Agent, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		client, err := llmRegistry.Get(ac.LLM)
		if err != nil {
			return nil, fmt.Errorf("config: agent %q: %w", ac.Name, err)
		}

		registry, err := scopedToolRegistry(toolRegistry, toolsByName, ac.Tools)
		if err != nil {
			return nil, fmt.Errorf("config: agent %q: %w", ac.Name, err)
		}

		agentsByName[ac.Name] = agent.New(agent.Config{
			Name:          ac.Name,
			Role:          ac.Role,
			Goal:          ac.Goal,
			Background:    ac.Background,
			LLM:           client,
			Tools:         registry,
			MaxIterations: ac.MaxIterations,
		})
	}

	tasksByRef := make(map[string]*task.Task, len(cfg.Tasks))
	var orderedTasks []*task.Task
	for _, tc := range cfg.Tasks {
		var agentID string
		if tc.Agent != "" {
			agentID = agentsByName[tc.Agent].ID
		}
		dependsOn := make([]string, len(tc.DependsOn))
		for i, ref := range tc.DependsOn {
			dependsOn[i] = tasksByRef[ref].ID
		}

		t := task.New(task.Config{
			Name:                       tc.Name,
			ReferenceID:                tc.ReferenceID,
			Description:                tc.Description,
			ExpectedOutput:             tc.ExpectedOutput,
			AgentID:                    agentID,
			DependsOn:                  dependsOn,
			AllowParallelExecution:     tc.AllowParallelExecution,
			IsDeliverable:              tc.IsDeliverable,
			ExternalValidationRequired: tc.ExternalValidationRequired,
		})
		tasksByRef[tc.ReferenceID] = t
		orderedTasks = append(orderedTasks, t)
	}

	var (
		execStrategy strategy.ExecutionStrategy
		supervisor   *agent.Agent
	)
	switch cfg.Strategy.Type {
	case StrategyManagerLLM:
		execStrategy = strategy.NewManagerLLMStrategy()
		supervisor = agentsByName[cfg.Strategy.Supervisor]
	default:
		execStrategy = strategy.NewDeterministicStrategy()
	}

	s := store.New(store.Config{
		Name:           cfg.Name,
		MaxConcurrency: cfg.MaxConcurrency,
		Strategy:       execStrategy,
		Supervisor:     supervisor,
	})

	agents := make([]*agent.Agent, 0, len(agentsByName))
	for _, a := range agentsByName {
		agents = append(agents, a)
	}
	if err := s.AddAgents(agents...); err != nil {
		return nil, fmt.Errorf("config: add agents: %w", err)
	}
	if err := s.AddTasks(orderedTasks...); err != nil {
		return nil, fmt.Errorf("config: add tasks: %w", err)
	}

	return s, nil
}

// BuildLLMRegistry constructs one llms.Client per entry in cfgs, dispatching
// on LLMConfig.Type, and registers them all under their config key.
func BuildLLMRegistry(cfgs map[string]LLMConfig) (*llms.Registry, error) {
	registry := llms.NewRegistry()
	for name, lc := range cfgs {
		var client llms.Client
		switch lc.Type {
		case "anthropic":
			client = llms.NewAnthropicClient(lc.APIKey, lc.Model, lc.Host)
		case "openai":
			client = llms.NewOpenAIClient(lc.APIKey, lc.Model, lc.Host)
		case "ollama":
			client = llms.NewOllamaClient(lc.Model, lc.Host)
		default:
			return nil, fmt.Errorf("config: llm %q: unknown type %q", name, lc.Type)
		}
		if err := registry.Register(name, client); err != nil {
			return nil, fmt.Errorf("config: register llm %q: %w", name, err)
		}
	}
	return registry, nil
}

// BuildToolRegistry registers every declared tool under one local source
// (plus one MCP source per mcp-typed entry), returning both the merged
// registry and a name -> Tool index so per-agent subsets can be carved out
// of it with scopedToolRegistry.
func BuildToolRegistry(ctx context.Context, cfgs []ToolConfig) (*tools.Registry, map[string]tools.Tool, error) {
	registry := tools.NewRegistry()
	byName := make(map[string]tools.Tool, len(cfgs))

	// Built-in local tools answer GetName() with a fixed canonical name
	// (e.g. "execute_command") regardless of the label a team gives them in
	// YAML, so byName is keyed by that canonical name, not tc.Name — a team
	// can declare at most one of each built-in type, named for readability
	// but referenced by its real tool name in an agent's Tools list.
	local := tools.NewLocalToolSource("local")
	for _, tc := range cfgs {
		switch tc.Type {
		case "command":
			t := tools.NewCommandTool(tools.CommandToolConfig{
				AllowedCommands:  tc.AllowedCommands,
				WorkingDirectory: tc.WorkingDirectory,
			})
			if err := local.Register(t); err != nil {
				return nil, nil, fmt.Errorf("config: register tool %q: %w", tc.Name, err)
			}
			byName[t.GetName()] = t
		case "file_writer":
			t := tools.NewFileWriterTool(tools.FileWriterConfig{WorkingDirectory: tc.WorkingDirectory})
			if err := local.Register(t); err != nil {
				return nil, nil, fmt.Errorf("config: register tool %q: %w", tc.Name, err)
			}
			byName[t.GetName()] = t
		case "search_replace":
			t := tools.NewSearchReplaceTool(tools.SearchReplaceConfig{WorkingDirectory: tc.WorkingDirectory})
			if err := local.Register(t); err != nil {
				return nil, nil, fmt.Errorf("config: register tool %q: %w", tc.Name, err)
			}
			byName[t.GetName()] = t
		case "mcp":
			src, err := tools.NewMCPToolSource(tools.MCPToolSourceConfig{
				Name: tc.Name, Command: tc.Command, Args: tc.Args, Env: tc.Env,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("config: mcp tool source %q: %w", tc.Name, err)
			}
			if err := registry.AddSource(ctx, src); err != nil {
				return nil, nil, fmt.Errorf("config: discover mcp tools for %q: %w", tc.Name, err)
			}
			for _, info := range src.ListTools() {
				if t, ok := src.GetTool(info.Name); ok {
					byName[info.Name] = t
				}
			}
		default:
			return nil, nil, fmt.Errorf("config: tool %q: unknown type %q", tc.Name, tc.Type)
		}
	}

	if err := registry.AddSource(ctx, local); err != nil {
		return nil, nil, fmt.Errorf("config: discover local tools: %w", err)
	}
	return registry, byName, nil
}

// scopedToolRegistry returns the full registry when names is empty,
// otherwise a fresh registry holding only the requested tools.
func scopedToolRegistry(full *tools.Registry, byName map[string]tools.Tool, names []string) (*tools.Registry, error) {
	if len(names) == 0 {
		return full, nil
	}

	scoped := tools.NewRegistry()
	source := tools.NewLocalToolSource("scoped")
	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		if err := source.Register(t); err != nil {
			return nil, err
		}
	}
	if err := scoped.AddSource(context.Background(), source); err != nil {
		return nil, err
	}
	return scoped, nil
}
