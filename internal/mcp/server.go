// Package mcp exposes the message pipeline and profile store as MCP
// tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/confidant-ai/confidant/internal/chat"
	"github.com/confidant-ai/confidant/internal/pipeline"
	"github.com/confidant-ai/confidant/internal/profile"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the pipeline and profile tools.
type Server struct {
	runner   *pipeline.Runner
	profiles *profile.Store
	chats    *chat.Store
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(runner *pipeline.Runner, profiles *profile.Store, chats *chat.Store) *Server {
	s := &Server{
		runner:   runner,
		profiles: profiles,
		chats:    chats,
	}

	s.mcp = server.NewMCPServer(
		"confidant",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(processMessageTool, s.handleProcessMessage)
	s.mcp.AddTool(getProfileTool, s.handleGetProfile)
	s.mcp.AddTool(listChatsTool, s.handleListChats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
