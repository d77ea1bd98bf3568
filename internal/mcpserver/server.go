// Package mcpserver exposes the cache engine as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"amplecache/internal/cache"
	"amplecache/internal/query"
)

const serverName = "amplecache"

// Tool pairs a tool definition with its handler.
type Tool struct {
	Definition mcp.Tool
	Handler    server.ToolHandlerFunc
}

type Server struct {
	engine  *cache.Engine
	version string
	tools   map[string]Tool
}

func New(engine *cache.Engine, version string) *Server {
	s := &Server{engine: engine, version: version, tools: map[string]Tool{}}
	s.registerNoteTools()
	s.registerTaskTools()
	return s
}

func (s *Server) add(def mcp.Tool, h server.ToolHandlerFunc) {
	s.tools[def.Name] = Tool{Definition: def, Handler: logged(def.Name, h)}
}

// Tools returns the registered tools sorted by name.
func (s *Server) Tools() []Tool {
	out := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Definition.Name < out[j].Definition.Name })
	return out
}

// Call invokes a tool handler directly, outside any transport.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	t, ok := s.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return t.Handler(ctx, req)
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(
		serverName,
		s.version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range s.Tools() {
		srv.AddTool(t.Definition, t.Handler)
	}
	return srv
}

// ServeStdio blocks serving MCP on stdin/stdout until the client goes away.
func (s *Server) ServeStdio(opts ...server.StdioOption) error {
	slog.Info("mcp stdio serving", "tools", len(s.tools), "version", s.version)
	return server.ServeStdio(s.MCPServer(), opts...)
}

func logged(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		slog.Debug("tool call", "tool", name, "args", req.GetArguments())
		res, err := h(ctx, req)
		if err != nil {
			slog.Error("tool call failed", "tool", name, "err", err)
		} else if res != nil && res.IsError {
			slog.Debug("tool call rejected", "tool", name)
		}
		return res, err
	}
}

// result renders v as indented JSON text. Usage errors become tool error
// results so the client can correct the call; anything else is a failure
// of the call itself.
func result(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if errors.Is(err, query.ErrUsage) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
