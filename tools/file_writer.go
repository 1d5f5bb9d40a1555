package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileWriterConfig bounds where and what FileWriterTool may write.
type FileWriterConfig struct {
	MaxFileSize       int
	AllowedExtensions []string
	BackupOnOverwrite bool
	WorkingDirectory  string
}

func (c *FileWriterConfig) setDefaults() {
	if c.MaxFileSize == 0 {
		c.MaxFileSize = 1048576
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{".go", ".yaml", ".md", ".json", ".txt", ".sh"}
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "./"
	}
}

// FileWriterTool creates or overwrites a file under the working directory,
// optionally backing up whatever it replaces.
type FileWriterTool struct {
	config FileWriterConfig
}

func NewFileWriterTool(cfg FileWriterConfig) *FileWriterTool {
	cfg.setDefaults()
	return &FileWriterTool{config: cfg}
}

func (t *FileWriterTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return t.errorResult("path parameter is required", start), fmt.Errorf("path parameter is required")
	}
	content, ok := args["content"].(string)
	if !ok {
		return t.errorResult("content parameter is required", start), fmt.Errorf("content parameter is required")
	}
	backup := true
	if b, ok := args["backup"].(bool); ok {
		backup = b
	}

	if err := t.validatePath(path); err != nil {
		return t.errorResult(err.Error(), start), err
	}
	if len(content) > t.config.MaxFileSize {
		err := fmt.Errorf("content exceeds max file size")
		return t.errorResult(fmt.Sprintf("content too large: %d bytes (max %d)", len(content), t.config.MaxFileSize), start), err
	}

	fullPath := filepath.Join(t.config.WorkingDirectory, path)

	fileExisted := false
	if _, err := os.Stat(fullPath); err == nil {
		fileExisted = true
	}
	backedUp := false
	if fileExisted && backup && t.config.BackupOnOverwrite {
		if err := copyFile(fullPath, fullPath+".bak"); err != nil {
			return t.errorResult(fmt.Sprintf("failed to create backup: %v", err), start), err
		}
		backedUp = true
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return t.errorResult(fmt.Sprintf("failed to create directory: %v", err), start), err
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return t.errorResult(fmt.Sprintf("failed to write file: %v", err), start), err
	}

	action := "created"
	if fileExisted {
		action = "overwritten"
	}
	message := fmt.Sprintf("file %s: %s (%d bytes)", action, path, len(content))
	if backedUp {
		message += fmt.Sprintf(", backup at %s.bak", path)
	}

	return ToolResult{
		Success:       true,
		Content:       message,
		ToolName:      "write_file",
		ExecutionTime: time.Since(start),
		Metadata: map[string]interface{}{
			"path":         path,
			"size":         len(content),
			"file_existed": fileExisted,
			"action":       action,
		},
	}, nil
}

func (t *FileWriterTool) validatePath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths not allowed, use relative paths")
	}
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("directory traversal not allowed (..)")
	}

	absPath, err := filepath.Abs(filepath.Join(t.config.WorkingDirectory, cleaned))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	absWorkDir, err := filepath.Abs(t.config.WorkingDirectory)
	if err != nil {
		return fmt.Errorf("invalid working directory: %w", err)
	}
	if !strings.HasPrefix(absPath, absWorkDir) {
		return fmt.Errorf("path escapes working directory")
	}

	if len(t.config.AllowedExtensions) > 0 {
		ext := filepath.Ext(path)
		allowed := false
		for _, a := range t.config.AllowedExtensions {
			if ext == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("file extension %s not allowed (allowed: %v)", ext, t.config.AllowedExtensions)
		}
	}
	return nil
}

func (t *FileWriterTool) errorResult(msg string, start time.Time) ToolResult {
	return ToolResult{Success: false, Error: msg, ToolName: "write_file", ExecutionTime: time.Since(start)}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (t *FileWriterTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "write_file",
		Description: "Create a new file or overwrite an existing one with content. When backups are enabled for this tool, the previous contents are saved to a .bak file first.",
		Parameters: []ToolParameter{
			{Name: "path", Type: "string", Description: "File path relative to the working directory", Required: true},
			{Name: "content", Type: "string", Description: "Content to write", Required: true},
			{Name: "backup", Type: "boolean", Description: "Create a .bak backup if the file exists (only when backups are enabled for this tool)", Required: false, Default: true},
		},
		ServerURL: "local",
	}
}

func (t *FileWriterTool) GetName() string        { return "write_file" }
func (t *FileWriterTool) GetDescription() string { return t.GetInfo().Description }
