// Package mcp exposes the plugin registry as an MCP tool server so editors
// and agents can run the same text actions the extension offers.
package mcp

import (
	"context"
	"fmt"
	"io"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"lovebug/config"
	"lovebug/plugin"
)

const (
	ServerName = "lovebug"
	// TextArgument is the single argument every plugin tool takes.
	TextArgument = "text"
)

type Server struct {
	registry *plugin.Registry
	mcp      *server.MCPServer
}

// NewServer creates a server publishing the currently enabled plugins.
func NewServer(registry *plugin.Registry, version string) *Server {
	s := &Server{
		registry: registry,
		mcp: server.NewMCPServer(ServerName, version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.Sync()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Sync replaces the tool list with one tool per enabled plugin.
func (s *Server) Sync() {
	enabled := s.registry.Enabled()
	tools := make([]server.ServerTool, 0, len(enabled))
	for _, p := range enabled {
		tools = append(tools, server.ServerTool{
			Tool:    pluginTool(p),
			Handler: s.handler(p.ID),
		})
	}
	s.mcp.SetTools(tools...)

	if config.Debug {
		config.DebugLog.Printf("[MCP] publishing %d plugin tools", len(tools))
	}
}

func pluginTool(p plugin.Plugin) mcptypes.Tool {
	description := p.Name
	if p.Description != "" {
		description = p.Name + ": " + p.Description
	}
	return mcptypes.Tool{
		Name:        p.ID,
		Description: description,
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				TextArgument: map[string]any{
					"type":        "string",
					"description": "Text the plugin operates on",
				},
			},
			Required: []string{TextArgument},
		},
	}
}

// handler runs the plugin through the registry so enabled state and custom
// prompts apply. Plugin failures are reported as tool errors.
func (s *Server) handler(id string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		text, ok := request.GetArguments()[TextArgument].(string)
		if !ok {
			return mcptypes.NewToolResultError(fmt.Sprintf("missing %q argument", TextArgument)), nil
		}

		res := s.registry.Execute(ctx, id, text)
		if !res.Success() {
			if config.Debug {
				config.DebugLog.Printf("[MCP] %s failed (%s): %s", id, res.Kind(), res.Message())
			}
			return mcptypes.NewToolResultError(res.Message()), nil
		}
		return mcptypes.NewToolResultText(res.Data()), nil
	}
}

// Serve speaks MCP over r and w until ctx is cancelled or r is closed.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(config.DebugLogger())
	return stdio.Listen(ctx, r, w)
}
