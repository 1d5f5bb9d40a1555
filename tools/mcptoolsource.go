package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPToolSourceConfig configures a stdio-transport MCP server as a ToolSource.
type MCPToolSourceConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
	// Filter limits which tools from the server are exposed. Empty means all.
	Filter []string
}

// MCPToolSource connects to an MCP server over stdio and exposes its tools
// through the same Tool interface as local tools, so an agent can't tell a
// remote capability from an in-process one.
type MCPToolSource struct {
	cfg       MCPToolSourceConfig
	filterSet map[string]bool

	mu        sync.Mutex
	client    *client.Client
	tools     map[string]Tool
	connected bool
}

func NewMCPToolSource(cfg MCPToolSourceConfig) (*MCPToolSource, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcp tool source %q: command is required", cfg.Name)
	}
	var filterSet map[string]bool
	if len(cfg.Filter) > 0 {
		filterSet = make(map[string]bool, len(cfg.Filter))
		for _, name := range cfg.Filter {
			filterSet[name] = true
		}
	}
	return &MCPToolSource{cfg: cfg, filterSet: filterSet, tools: make(map[string]Tool)}, nil
}

func (s *MCPToolSource) GetName() string { return s.cfg.Name }
func (s *MCPToolSource) GetType() string { return "mcp" }

// DiscoverTools starts the server subprocess, performs the MCP handshake and
// lists its tools. Safe to call more than once; later calls are a no-op.
func (s *MCPToolSource) DiscoverTools(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}

	env := make([]string, 0, len(s.cfg.Env))
	for k, v := range s.cfg.Env {
		env = append(env, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(s.cfg.Command, env, s.cfg.Args...)
	if err != nil {
		return fmt.Errorf("create mcp client for %s: %w", s.cfg.Name, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("start mcp server %s: %w", s.cfg.Name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "flowteam-core", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("initialize mcp server %s: %w", s.cfg.Name, err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("list tools from %s: %w", s.cfg.Name, err)
	}

	for _, t := range listResp.Tools {
		if s.filterSet != nil && !s.filterSet[t.Name] {
			continue
		}
		s.tools[t.Name] = &mcpTool{
			client:      mcpClient,
			name:        t.Name,
			description: t.Description,
			serverName:  s.cfg.Name,
			schema:      convertSchema(t.InputSchema),
		}
	}

	s.client = mcpClient
	s.connected = true
	return nil
}

func (s *MCPToolSource) ListTools() []ToolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, t.GetInfo())
	}
	return infos
}

func (s *MCPToolSource) GetTool(name string) (Tool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tools[name]
	return t, ok
}

// Close shuts down the underlying MCP server subprocess, if connected.
func (s *MCPToolSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// mcpTool wraps a single tool exposed by an MCP server as a Tool.
type mcpTool struct {
	client      *client.Client
	name        string
	description string
	serverName  string
	schema      map[string]any
}

func (t *mcpTool) GetName() string        { return t.name }
func (t *mcpTool) GetDescription() string { return t.description }

func (t *mcpTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: t.description,
		ServerURL:   t.serverName,
	}
}

func (t *mcpTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	resp, err := t.client.CallTool(ctx, req)
	if err != nil {
		return ToolResult{
			Success:       false,
			Error:         err.Error(),
			ToolName:      t.name,
			ExecutionTime: time.Since(start),
		}, err
	}

	result := ToolResult{ToolName: t.name, ExecutionTime: time.Since(start)}
	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	joined := joinLines(texts)

	if resp.IsError {
		result.Success = false
		result.Error = joined
		if result.Error == "" {
			result.Error = "mcp tool reported an error with no message"
		}
		return result, fmt.Errorf("mcp tool %s failed: %s", t.name, result.Error)
	}

	result.Success = true
	result.Content = joined
	return result, nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// convertSchema turns an MCP tool's input schema into a plain JSON Schema
// map by round-tripping it through encoding/json.
func convertSchema(schema any) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
