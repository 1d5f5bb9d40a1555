package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandToolConfig bounds what CommandTool is allowed to run.
type CommandToolConfig struct {
	AllowedCommands  []string
	WorkingDirectory string
	MaxExecutionTime time.Duration
	EnableSandboxing bool
}

func (c *CommandToolConfig) setDefaults() {
	if len(c.AllowedCommands) == 0 {
		c.AllowedCommands = []string{
			"cat", "head", "tail", "ls", "find", "grep", "wc", "pwd",
			"git", "go", "curl", "echo", "date",
		}
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "./"
	}
	if c.MaxExecutionTime == 0 {
		c.MaxExecutionTime = 30 * time.Second
	}
}

// CommandTool executes shell commands (via sh -c) on behalf of an agent.
// With EnableSandboxing set, the first word of the command (before any |,
// <, > or ;) must appear in AllowedCommands; without it, AllowedCommands is
// not consulted.
type CommandTool struct {
	config CommandToolConfig
}

func NewCommandTool(cfg CommandToolConfig) *CommandTool {
	cfg.setDefaults()
	return &CommandTool{config: cfg}
}

func (t *CommandTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return t.errorResult("command parameter is required"), fmt.Errorf("command parameter is required")
	}

	workingDir, _ := args["working_dir"].(string)
	if workingDir == "" {
		workingDir = t.config.WorkingDirectory
	}

	if err := t.validateCommand(command); err != nil {
		return t.errorResult(err.Error()), err
	}

	if t.config.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.MaxExecutionTime)
		defer cancel()
	}

	return t.run(ctx, command, workingDir)
}

func (t *CommandTool) validateCommand(command string) error {
	if !t.config.EnableSandboxing {
		return nil
	}
	base := t.extractBaseCommand(command)
	for _, allowed := range t.config.AllowedCommands {
		if base == allowed {
			return nil
		}
	}
	return fmt.Errorf("command not allowed: %s", base)
}

func (t *CommandTool) run(ctx context.Context, command, workingDir string) (ToolResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workingDir

	start := time.Now()
	output, err := cmd.CombinedOutput()

	result := ToolResult{
		Content:       string(output),
		Success:       err == nil,
		ToolName:      "execute_command",
		ExecutionTime: time.Since(start),
		Metadata: map[string]interface{}{
			"command":     command,
			"working_dir": workingDir,
		},
	}
	if err != nil {
		result.Error = err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.Metadata["exit_code"] = exitErr.ExitCode()
		}
	}
	return result, err
}

func (t *CommandTool) extractBaseCommand(command string) string {
	parts := strings.FieldsFunc(command, func(r rune) bool {
		return r == '|' || r == '>' || r == '<' || r == ';'
	})
	if len(parts) == 0 {
		return ""
	}
	fields := strings.Fields(strings.TrimSpace(parts[0]))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (t *CommandTool) errorResult(msg string) ToolResult {
	return ToolResult{Success: false, Error: msg, ToolName: "execute_command"}
}

func (t *CommandTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "execute_command",
		Description: "Execute a shell command and return its combined output. Commands are checked against an allow-list when sandboxing is enabled.",
		Parameters: []ToolParameter{
			{Name: "command", Type: "string", Description: "Shell command to run (pipes and redirects allowed)", Required: true},
			{Name: "working_dir", Type: "string", Description: "Working directory, defaults to the tool's configured one", Required: false},
		},
		ServerURL: "local",
	}
}

func (t *CommandTool) GetName() string        { return "execute_command" }
func (t *CommandTool) GetDescription() string { return t.GetInfo().Description }
