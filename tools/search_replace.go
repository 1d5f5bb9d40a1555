package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SearchReplaceConfig bounds SearchReplaceTool's edits.
type SearchReplaceConfig struct {
	MaxReplacements  int
	CreateBackup     bool
	WorkingDirectory string
}

func (c *SearchReplaceConfig) setDefaults() {
	if c.MaxReplacements == 0 {
		c.MaxReplacements = 100
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "./"
	}
}

// SearchReplaceTool performs exact-text replacement within an existing file,
// refusing ambiguous matches unless replace_all is set.
type SearchReplaceTool struct {
	config SearchReplaceConfig
}

func NewSearchReplaceTool(cfg SearchReplaceConfig) *SearchReplaceTool {
	cfg.setDefaults()
	return &SearchReplaceTool{config: cfg}
}

func (t *SearchReplaceTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return t.errorResult("path parameter is required", start), fmt.Errorf("path parameter is required")
	}
	oldString, ok := args["old_string"].(string)
	if !ok || oldString == "" {
		return t.errorResult("old_string parameter is required", start), fmt.Errorf("old_string parameter is required")
	}
	newString, ok := args["new_string"].(string)
	if !ok {
		return t.errorResult("new_string parameter is required", start), fmt.Errorf("new_string parameter is required")
	}
	replaceAll, _ := args["replace_all"].(bool)

	if err := t.validatePath(path); err != nil {
		return t.errorResult(err.Error(), start), err
	}
	fullPath := filepath.Join(t.config.WorkingDirectory, path)

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return t.errorResult(fmt.Sprintf("failed to read file: %v", err), start), err
	}
	original := string(content)

	if !strings.Contains(original, oldString) {
		err := fmt.Errorf("old_string not found")
		return t.errorResult(fmt.Sprintf("old_string not found in file: %q", truncate(oldString, 50)), start), err
	}

	count := strings.Count(original, oldString)
	if !replaceAll && count > 1 {
		err := fmt.Errorf("ambiguous replacement: %d occurrences", count)
		return t.errorResult(fmt.Sprintf("old_string appears %d times, use replace_all=true or a more specific match", count), start), err
	}
	if count > t.config.MaxReplacements {
		err := fmt.Errorf("exceeds max replacements")
		return t.errorResult(fmt.Sprintf("too many replacements: %d (max %d)", count, t.config.MaxReplacements), start), err
	}

	var updated string
	replacements := 1
	if replaceAll {
		updated = strings.ReplaceAll(original, oldString, newString)
		replacements = count
	} else {
		updated = strings.Replace(original, oldString, newString, 1)
	}

	if t.config.CreateBackup {
		if err := os.WriteFile(fullPath+".bak", content, 0644); err != nil {
			return t.errorResult(fmt.Sprintf("failed to create backup: %v", err), start), err
		}
	}
	if err := os.WriteFile(fullPath, []byte(updated), 0644); err != nil {
		return t.errorResult(fmt.Sprintf("failed to write file: %v", err), start), err
	}

	return ToolResult{
		Success:       true,
		Content:       fmt.Sprintf("replaced %d occurrence(s) in %s", replacements, path),
		ToolName:      "search_replace",
		ExecutionTime: time.Since(start),
		Metadata: map[string]interface{}{
			"path":         path,
			"replacements": replacements,
			"replace_all":  replaceAll,
			"backed_up":    t.config.CreateBackup,
		},
	}, nil
}

func (t *SearchReplaceTool) validatePath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths not allowed")
	}
	if strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("directory traversal not allowed")
	}
	fullPath := filepath.Join(t.config.WorkingDirectory, path)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	return nil
}

func (t *SearchReplaceTool) errorResult(msg string, start time.Time) ToolResult {
	return ToolResult{Success: false, Error: msg, ToolName: "search_replace", ExecutionTime: time.Since(start)}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func (t *SearchReplaceTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "search_replace",
		Description: "Replace exact text in an existing file, preserving surrounding formatting. Use for precise, targeted edits.",
		Parameters: []ToolParameter{
			{Name: "path", Type: "string", Description: "File to edit, relative to the working directory", Required: true},
			{Name: "old_string", Type: "string", Description: "Exact text to find (must be unique unless replace_all=true)", Required: true},
			{Name: "new_string", Type: "string", Description: "Replacement text", Required: true},
			{Name: "replace_all", Type: "boolean", Description: "Replace every occurrence instead of requiring a unique match", Required: false, Default: false},
		},
		ServerURL: "local",
	}
}

func (t *SearchReplaceTool) GetName() string        { return "search_replace" }
func (t *SearchReplaceTool) GetDescription() string { return t.GetInfo().Description }
