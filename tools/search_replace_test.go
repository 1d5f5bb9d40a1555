package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestSearchReplaceTool_Execute_ReplacesUniqueMatch(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", "package main\n\nfunc old() {}\n")

	tool := NewSearchReplaceTool(SearchReplaceConfig{WorkingDirectory: dir})
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":       "main.go",
		"old_string": "func old()",
		"new_string": "func renamed()",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	data, _ := os.ReadFile(filepath.Join(dir, "main.go"))
	assert.Contains(t, string(data), "func renamed()")
}

func TestSearchReplaceTool_Execute_AmbiguousMatchRequiresReplaceAll(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", "foo\nfoo\n")

	tool := NewSearchReplaceTool(SearchReplaceConfig{WorkingDirectory: dir})
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":       "main.go",
		"old_string": "foo",
		"new_string": "bar",
	})
	assert.Error(t, err)
}

func TestSearchReplaceTool_Execute_ReplaceAllReplacesEveryOccurrence(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", "foo\nfoo\n")

	tool := NewSearchReplaceTool(SearchReplaceConfig{WorkingDirectory: dir})
	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":        "main.go",
		"old_string":  "foo",
		"new_string":  "bar",
		"replace_all": true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Metadata["replacements"])

	data, _ := os.ReadFile(filepath.Join(dir, "main.go"))
	assert.Equal(t, "bar\nbar\n", string(data))
}

func TestSearchReplaceTool_Execute_OldStringNotFound(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", "foo\n")

	tool := NewSearchReplaceTool(SearchReplaceConfig{WorkingDirectory: dir})
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":       "main.go",
		"old_string": "bar",
		"new_string": "baz",
	})
	assert.Error(t, err)
}

func TestSearchReplaceTool_Execute_MissingFile(t *testing.T) {
	tool := NewSearchReplaceTool(SearchReplaceConfig{WorkingDirectory: t.TempDir()})
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":       "missing.go",
		"old_string": "foo",
		"new_string": "bar",
	})
	assert.Error(t, err)
}

func TestSearchReplaceTool_Execute_CreatesBackupWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", "foo\n")

	tool := NewSearchReplaceTool(SearchReplaceConfig{WorkingDirectory: dir, CreateBackup: true})
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":       "main.go",
		"old_string": "foo",
		"new_string": "bar",
	})
	require.NoError(t, err)

	backup, err := os.ReadFile(filepath.Join(dir, "main.go.bak"))
	require.NoError(t, err)
	assert.Equal(t, "foo\n", string(backup))
}
