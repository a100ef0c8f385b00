package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/Sourcish/ServiceNow-Agent/internal/agent"
	"github.com/Sourcish/ServiceNow-Agent/internal/config"
	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
	"github.com/Sourcish/ServiceNow-Agent/internal/secrets"
	"github.com/Sourcish/ServiceNow-Agent/internal/servicenow"
)

// MCP Protocol Types
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Tool carries a pre-serialized input schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

type Capabilities struct {
	Tools map[string]interface{} `json:"tools"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

var logger *log.Logger

func initLogger() {
	paths, err := config.ResolvePaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve paths: %v\n", err)
		logger = log.New(os.Stderr, "[mcp-servicenow] ", log.LstdFlags)
		return
	}
	if err := os.MkdirAll(paths.Logs, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs directory: %v\n", err)
		logger = log.New(os.Stderr, "[mcp-servicenow] ", log.LstdFlags)
		return
	}

	logFile := filepath.Join(paths.Logs, "mcp-servicenow.log")
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		logger = log.New(os.Stderr, "[mcp-servicenow] ", log.LstdFlags)
		return
	}

	logger = log.New(io.MultiWriter(f, os.Stderr), "[mcp-servicenow] ", log.LstdFlags)
	logger.Println("MCP ServiceNow server starting...")
}

func main() {
	initLogger()

	server := &MCPServer{}
	logger.Println("Server initialized")
	server.Run()
}

type MCPServer struct {
	registry *agent.Registry
}

func (s *MCPServer) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	logger.Println("Listening for requests on stdin...")

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		s.handleRequest(line)
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		logger.Printf("Error reading stdin: %v\n", err)
		fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
	}
	logger.Println("Server shutting down")
}

func (s *MCPServer) handleRequest(line string) {
	var req JSONRPCRequest
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		logger.Printf("Parse error: %v\n", err)
		s.sendError(nil, -32700, "Parse error", err.Error())
		return
	}

	logger.Printf("Handling method: %s\n", req.Method)

	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "tools/list":
		s.handleListTools(req)
	case "tools/call":
		s.handleCallTool(req)
	case "notifications/initialized":
		logger.Println("Received initialized notification")
		return
	default:
		logger.Printf("Unknown method: %s\n", req.Method)
		s.sendError(req.ID, -32601, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) {
	logger.Println("Handling initialize request")

	if err := s.loadRegistry(); err != nil {
		logger.Printf("Failed to load configuration: %v\n", err)
		s.sendError(req.ID, -32603, "Internal error", fmt.Sprintf("Failed to load configuration: %v", err))
		return
	}

	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: Capabilities{
			Tools: map[string]interface{}{},
		},
		ServerInfo: ServerInfo{
			Name:    "servicenow",
			Version: "1.0.0",
		},
	}

	s.sendResponse(req.ID, result)
}

// loadRegistry builds the tool registry from config plus environment.
// SNOW_PASSWORD short-circuits the Secret Manager lookup so a laptop needs
// no cloud credentials.
func (s *MCPServer) loadRegistry() error {
	paths, err := config.ResolvePaths()
	if err != nil {
		return err
	}
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return err
	}

	if cfg.ServiceNow.Instance == "" {
		return fmt.Errorf("servicenow.instance is required (set it in %s or via SNOW_INSTANCE)", paths.Config)
	}
	if cfg.ServiceNow.Username == "" {
		return fmt.Errorf("servicenow.username is required (set it in %s or via SNOW_USERNAME)", paths.Config)
	}

	password := cfg.ServiceNow.Password
	if password == "" {
		ctx := context.Background()
		mgr, err := secrets.NewManager(ctx, cfg.Runtime.Project)
		if err != nil {
			return fmt.Errorf("no SNOW_PASSWORD set and Secret Manager unavailable: %w", err)
		}
		password, err = mgr.Access(ctx, cfg.ServiceNow.PasswordSecret)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", cfg.ServiceNow.PasswordSecret, err)
		}
	}

	snow := servicenow.NewClient(cfg.ServiceNow.Instance, cfg.ServiceNow.Username, password, logging.New(nil, "silent"))
	s.registry = agent.NewServiceNowRegistry(snow)
	logger.Printf("Configuration loaded for instance: %s\n", cfg.ServiceNow.Instance)
	return nil
}

func (s *MCPServer) handleListTools(req JSONRPCRequest) {
	logger.Println("Handling list tools request")

	if s.registry == nil {
		if err := s.loadRegistry(); err != nil {
			s.sendError(req.ID, -32603, "Internal error", err.Error())
			return
		}
	}

	defs := s.registry.Definitions()
	tools := make([]Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: json.RawMessage(def.InputSchema),
		})
	}

	s.sendResponse(req.ID, ListToolsResult{Tools: tools})
}

func (s *MCPServer) handleCallTool(req JSONRPCRequest) {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		logger.Printf("Invalid params: %v\n", err)
		s.sendError(req.ID, -32602, "Invalid params", err.Error())
		return
	}

	logger.Printf("Calling tool: %s\n", params.Name)

	if s.registry == nil {
		if err := s.loadRegistry(); err != nil {
			s.sendError(req.ID, -32603, "Internal error", err.Error())
			return
		}
	}

	tool, ok := s.registry.Get(params.Name)
	if !ok {
		logger.Printf("Unknown tool: %s\n", params.Name)
		s.sendError(req.ID, -32602, "Unknown tool", fmt.Sprintf("Tool not found: %s", params.Name))
		return
	}

	input := "{}"
	if params.Arguments != nil {
		data, err := json.Marshal(params.Arguments)
		if err != nil {
			s.sendError(req.ID, -32602, "Invalid params", err.Error())
			return
		}
		input = string(data)
	}

	output, err := tool.Execute(context.Background(), input)
	if err != nil {
		logger.Printf("Tool %s failed: %v\n", params.Name, err)
		s.sendResponse(req.ID, ToolResult{
			Content: []ContentItem{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
		return
	}

	s.sendResponse(req.ID, ToolResult{
		Content: []ContentItem{{Type: "text", Text: output}},
	})
}

func (s *MCPServer) sendResponse(id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		logger.Printf("Error marshaling response: %v\n", err)
		fmt.Fprintf(os.Stderr, "Error marshaling response: %v\n", err)
		return
	}

	fmt.Println(string(data))
}

func (s *MCPServer) sendError(id interface{}, code int, message string, data interface{}) {
	logger.Printf("Sending error response: code=%d, message=%s\n", code, message)

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	jsonData, err := json.Marshal(resp)
	if err != nil {
		logger.Printf("Error marshaling error response: %v\n", err)
		fmt.Fprintf(os.Stderr, "Error marshaling error response: %v\n", err)
		return
	}

	fmt.Println(string(jsonData))
}
