package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamConfig_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("builds a runnable store from a deterministic team", func(t *testing.T) {
		team := validTeam()
		team.SetDefaults()
		require.NoError(t, team.Validate())

		s, err := team.Build(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("wires a supervisor for manager_llm teams", func(t *testing.T) {
		team := validTeam()
		team.Strategy.Type = StrategyManagerLLM
		team.Strategy.Supervisor = "writer"
		team.SetDefaults()
		require.NoError(t, team.Validate())

		s, err := team.Build(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("errors on an unknown llm type", func(t *testing.T) {
		team := validTeam()
		team.LLMs["gpt"] = LLMConfig{Type: "bogus", Model: "m"}
		team.SetDefaults()

		_, err := team.Build(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown type")
	})

	t.Run("scopes a non-empty agent tool list to only those tools", func(t *testing.T) {
		team := validTeam()
		team.Tools = []ToolConfig{
			{Name: "shell", Type: "command"},
			{Name: "writer_tool", Type: "file_writer"},
		}
		team.Agents[0].Tools = []string{"execute_command"}
		team.SetDefaults()
		require.NoError(t, team.Validate())

		s, err := team.Build(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("errors when an agent references an unregistered tool name", func(t *testing.T) {
		team := validTeam()
		team.Tools = []ToolConfig{{Name: "shell", Type: "command"}}
		team.Agents[0].Tools = []string{"does_not_exist"}
		team.SetDefaults()
		require.NoError(t, team.Validate())

		_, err := team.Build(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
	})
}

func TestBuildLLMRegistry(t *testing.T) {
	t.Run("registers every configured client", func(t *testing.T) {
		cfgs := map[string]LLMConfig{
			"a": {Type: "anthropic", Model: "claude", APIKey: "k"},
			"o": {Type: "openai", Model: "gpt-4o", APIKey: "k"},
			"l": {Type: "ollama", Model: "llama3"},
		}
		for name, c := range cfgs {
			c.SetDefaults()
			cfgs[name] = c
		}

		reg, err := BuildLLMRegistry(cfgs)
		require.NoError(t, err)
		for name := range cfgs {
			_, err := reg.Get(name)
			assert.NoError(t, err)
		}
	})
}

func TestBuildToolRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("builds the team-wide registry and name index", func(t *testing.T) {
		cfgs := []ToolConfig{
			{Name: "shell", Type: "command"},
			{Name: "writer_tool", Type: "file_writer"},
		}
		for i := range cfgs {
			cfgs[i].SetDefaults()
		}

		registry, byName, err := BuildToolRegistry(ctx, cfgs)
		require.NoError(t, err)
		require.NotNil(t, registry)
		assert.Contains(t, byName, "execute_command")
		assert.Contains(t, byName, "write_file")
	})

	t.Run("errors on an unknown tool type", func(t *testing.T) {
		cfgs := []ToolConfig{{Name: "x", Type: "bogus"}}
		_, _, err := BuildToolRegistry(ctx, cfgs)
		require.Error(t, err)
	})
}
