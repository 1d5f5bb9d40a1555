package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryWithCommandTool(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	src := NewLocalToolSource("local")
	require.NoError(t, src.Register(NewCommandTool(CommandToolConfig{WorkingDirectory: t.TempDir()})))
	require.NoError(t, r.AddSource(context.Background(), src))
	return r
}

func TestRegistry_AddSourceAndGet(t *testing.T) {
	r := newRegistryWithCommandTool(t)

	tool, ok := r.Get("execute_command")
	require.True(t, ok)
	assert.Equal(t, "execute_command", tool.GetName())
}

func TestRegistry_Get_UnknownName(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_List_IsSortedByName(t *testing.T) {
	r := NewRegistry()
	src := NewLocalToolSource("local")
	require.NoError(t, src.Register(NewFileWriterTool(FileWriterConfig{})))
	require.NoError(t, src.Register(NewCommandTool(CommandToolConfig{})))
	require.NoError(t, r.AddSource(context.Background(), src))

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "execute_command", infos[0].Name)
	assert.Equal(t, "write_file", infos[1].Name)
}

func TestRegistry_AddSource_KeepsFirstOnNameConflict(t *testing.T) {
	r := NewRegistry()

	first := NewLocalToolSource("first")
	require.NoError(t, first.Register(NewCommandTool(CommandToolConfig{WorkingDirectory: "/a"})))
	require.NoError(t, r.AddSource(context.Background(), first))

	second := NewLocalToolSource("second")
	require.NoError(t, second.Register(NewCommandTool(CommandToolConfig{WorkingDirectory: "/b"})))
	require.NoError(t, r.AddSource(context.Background(), second))

	tool, ok := r.Get("execute_command")
	require.True(t, ok)
	assert.Equal(t, "/a", tool.(*CommandTool).config.WorkingDirectory)
}

func TestRegistry_RemoveSource_DropsItsTools(t *testing.T) {
	r := newRegistryWithCommandTool(t)
	r.RemoveSource("local")

	_, ok := r.Get("execute_command")
	assert.False(t, ok)
}

func TestRegistry_Execute_RunsRegisteredTool(t *testing.T) {
	r := newRegistryWithCommandTool(t)

	result, err := r.Execute(context.Background(), ToolCall{Name: "execute_command", Parameters: map[string]interface{}{"command": "echo hi"}})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRegistry_Execute_UnknownToolReturnsFailedResult(t *testing.T) {
	r := NewRegistry()
	result, err := r.Execute(context.Background(), ToolCall{Name: "missing"})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "missing", result.ToolName)
}
