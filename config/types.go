package config

import (
	"fmt"
	"time"
)

// TeamConfig is the declarative definition of a team: its LLMs, tools,
// agents, tasks, and the strategy that schedules them. Load builds one of
// these from YAML; Build turns it into an unstarted store.Store.
type TeamConfig struct {
	Name           string               `yaml:"name"`
	MaxConcurrency int                  `yaml:"max_concurrency,omitempty"`
	Strategy       StrategyConfig       `yaml:"strategy"`
	LLMs           map[string]LLMConfig `yaml:"llms"`
	Tools          []ToolConfig         `yaml:"tools,omitempty"`
	Agents         []AgentConfig        `yaml:"agents"`
	Tasks          []TaskConfig         `yaml:"tasks"`
	SQL            *TaskSQLConfig       `yaml:"sql,omitempty"`
	Metrics        *MetricsConfig       `yaml:"metrics,omitempty"`
	Tracing        *TracingConfig       `yaml:"tracing,omitempty"`
}

// SetDefaults fills in unset fields across the whole team definition.
func (c *TeamConfig) SetDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 5
	}
	c.Strategy.SetDefaults()
	for name, llm := range c.LLMs {
		llm.SetDefaults()
		c.LLMs[name] = llm
	}
	for i := range c.Tools {
		c.Tools[i].SetDefaults()
	}
	for i := range c.Agents {
		c.Agents[i].SetDefaults()
	}
	for i := range c.Tasks {
		c.Tasks[i].SetDefaults()
	}
	if c.SQL != nil {
		c.SQL.SetDefaults()
	}
}

// Validate checks the team definition for internal consistency: every
// agent's LLM reference must resolve, task ids must be unique, and
// dependsOn must name existing tasks. The tool names an agent lists are not
// checked here; Build rejects unknown ones.
func (c *TeamConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: team name is required")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("config: at least one agent is required")
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("config: at least one task is required")
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("config: strategy: %w", err)
	}

	toolNames := make(map[string]bool, len(c.Tools))
	for i, t := range c.Tools {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("config: tool %d: %w", i, err)
		}
		if toolNames[t.Name] {
			return fmt.Errorf("config: duplicate tool name %q", t.Name)
		}
		toolNames[t.Name] = true
	}

	agentNames := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("config: agent %d: %w", i, err)
		}
		if agentNames[a.Name] {
			return fmt.Errorf("config: duplicate agent name %q", a.Name)
		}
		agentNames[a.Name] = true
		if _, ok := c.LLMs[a.LLM]; !ok {
			return fmt.Errorf("config: agent %q references unknown llm %q", a.Name, a.LLM)
		}
	}

	if c.Strategy.Type == StrategyManagerLLM {
		if c.Strategy.Supervisor == "" {
			return fmt.Errorf("config: manager_llm strategy requires a supervisor agent")
		}
		if !agentNames[c.Strategy.Supervisor] {
			return fmt.Errorf("config: supervisor %q is not a declared agent", c.Strategy.Supervisor)
		}
	}

	taskIDs := make(map[string]bool, len(c.Tasks))
	for i, t := range c.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("config: task %d: %w", i, err)
		}
		if taskIDs[t.ReferenceID] {
			return fmt.Errorf("config: duplicate task reference id %q", t.ReferenceID)
		}
		taskIDs[t.ReferenceID] = true
		if t.Agent != "" && !agentNames[t.Agent] {
			return fmt.Errorf("config: task %q references unknown agent %q", t.ReferenceID, t.Agent)
		}
	}
	for _, t := range c.Tasks {
		for _, dep := range t.DependsOn {
			if !taskIDs[dep] {
				return fmt.Errorf("config: task %q depends on unknown task %q", t.ReferenceID, dep)
			}
		}
	}

	return nil
}

// LLMConfig describes one named LLM client.
type LLMConfig struct {
	Type        string  `yaml:"type"` // "anthropic", "openai", "ollama"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Host        string  `yaml:"host,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// SetDefaults fills in provider-appropriate defaults.
func (c *LLMConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Host == "" {
		switch c.Type {
		case "openai":
			c.Host = "https://api.openai.com"
		case "anthropic":
			c.Host = "https://api.anthropic.com"
		default:
			c.Host = "http://localhost:11434"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
}

// ToolConfig describes one tool or tool source to wire into every agent
// that doesn't list its own Tools.
type ToolConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "command", "file_writer", "search_replace", "mcp"

	// command
	AllowedCommands  []string `yaml:"allowed_commands,omitempty"`
	WorkingDirectory string   `yaml:"working_directory,omitempty"`

	// mcp
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// SetDefaults fills in unset fields.
func (c *ToolConfig) SetDefaults() {
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "./"
	}
}

// Validate checks the tool config names a supported type.
func (c *ToolConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch c.Type {
	case "command", "file_writer", "search_replace", "mcp":
	default:
		return fmt.Errorf("unknown tool type %q", c.Type)
	}
	if c.Type == "mcp" && c.Command == "" {
		return fmt.Errorf("mcp tool %q requires a command", c.Name)
	}
	return nil
}

// AgentConfig is one agent's declarative definition.
type AgentConfig struct {
	Name          string   `yaml:"name"`
	Role          string   `yaml:"role"`
	Goal          string   `yaml:"goal"`
	Background    string   `yaml:"background,omitempty"`
	LLM           string   `yaml:"llm"`
	Tools         []string `yaml:"tools,omitempty"` // registered tool names (GetName, e.g. "execute_command"), not Tools entry labels; empty = all
	MaxIterations int      `yaml:"max_iterations,omitempty"`
}

// SetDefaults fills in unset fields.
func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
}

// Validate checks the agent config.
func (c *AgentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.LLM == "" {
		return fmt.Errorf("llm reference is required")
	}
	return nil
}

// StrategyType selects which execution strategy a team runs under.
type StrategyType string

const (
	StrategyDeterministic StrategyType = "deterministic"
	StrategyManagerLLM    StrategyType = "manager_llm"
)

// StrategyConfig selects and configures the team's execution strategy.
type StrategyConfig struct {
	Type       StrategyType `yaml:"type"`
	Supervisor string       `yaml:"supervisor,omitempty"` // required when Type == manager_llm
}

// SetDefaults fills in unset fields.
func (c *StrategyConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = StrategyDeterministic
	}
}

// Validate checks the strategy type is recognized.
func (c *StrategyConfig) Validate() error {
	switch c.Type {
	case StrategyDeterministic, StrategyManagerLLM:
		return nil
	default:
		return fmt.Errorf("unknown strategy type %q", c.Type)
	}
}

// TaskConfig is one task's declarative definition. ReferenceID is the
// human-assigned id used for DependsOn edges and duplicate detection;
// task.Task.ID is a freshly generated uuid assigned at Build time.
type TaskConfig struct {
	ReferenceID                string        `yaml:"id"`
	Name                       string        `yaml:"name"`
	Description                string        `yaml:"description"`
	ExpectedOutput             string        `yaml:"expected_output,omitempty"`
	Agent                      string        `yaml:"agent"`
	DependsOn                  []string      `yaml:"depends_on,omitempty"`
	AllowParallelExecution     bool          `yaml:"allow_parallel_execution,omitempty"`
	IsDeliverable              bool          `yaml:"is_deliverable,omitempty"`
	ExternalValidationRequired bool          `yaml:"external_validation_required,omitempty"`
	Timeout                    time.Duration `yaml:"timeout,omitempty"`
}

// SetDefaults fills in unset fields.
func (c *TaskConfig) SetDefaults() {}

// Validate checks the task config.
func (c *TaskConfig) Validate() error {
	if c.ReferenceID == "" {
		return fmt.Errorf("id is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	return nil
}

// TaskSQLConfig describes the persistence.SnapshotStore backing a team.
type TaskSQLConfig struct {
	Driver   string `yaml:"driver"` // "postgres", "mysql", or "sqlite"
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
	MaxConns int    `yaml:"max_conns,omitempty"`
	MaxIdle  int    `yaml:"max_idle,omitempty"`
}

// SetDefaults fills in unset fields.
func (c *TaskSQLConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = 5
	}
}

// Validate checks the SQL config.
func (c *TaskSQLConfig) Validate() error {
	switch c.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported driver %q (supported: postgres, mysql, sqlite)", c.Driver)
	}
	return nil
}

// MetricsConfig configures the observability.Metrics registry for a team.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace,omitempty"`
}

// TracingConfig configures the observability tracer for a team.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`
}
