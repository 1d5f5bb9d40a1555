package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTool_Execute_RunsShellCommand(t *testing.T) {
	tool := NewCommandTool(CommandToolConfig{WorkingDirectory: t.TempDir()})

	result, err := tool.Execute(context.Background(), map[string]interface{}{"command": "echo hello"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Content, "hello")
}

func TestCommandTool_Execute_MissingCommandErrors(t *testing.T) {
	tool := NewCommandTool(CommandToolConfig{})
	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestCommandTool_Execute_SandboxingRejectsDisallowedCommand(t *testing.T) {
	tool := NewCommandTool(CommandToolConfig{
		EnableSandboxing: true,
		AllowedCommands:  []string{"echo"},
	})

	_, err := tool.Execute(context.Background(), map[string]interface{}{"command": "rm -rf /"})
	assert.Error(t, err)
}

func TestCommandTool_Execute_SandboxingAllowsListedCommand(t *testing.T) {
	tool := NewCommandTool(CommandToolConfig{
		EnableSandboxing: true,
		AllowedCommands:  []string{"echo"},
		WorkingDirectory: t.TempDir(),
	})

	result, err := tool.Execute(context.Background(), map[string]interface{}{"command": "echo hi"})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCommandTool_Execute_FailingCommandReportsExitCode(t *testing.T) {
	tool := NewCommandTool(CommandToolConfig{WorkingDirectory: t.TempDir()})

	result, err := tool.Execute(context.Background(), map[string]interface{}{"command": "exit 3"})
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Metadata["exit_code"])
}

func TestCommandTool_NameAndInfo(t *testing.T) {
	tool := NewCommandTool(CommandToolConfig{})
	assert.Equal(t, "execute_command", tool.GetName())
	assert.NotEmpty(t, tool.GetDescription())
	assert.Equal(t, "execute_command", tool.GetInfo().Name)
}
