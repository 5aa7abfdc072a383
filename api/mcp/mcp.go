// Package mcp provides an MCP (Model Context Protocol) server exposing the
// live meeting minutes to agents.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/summary"
	"github.com/papercomputeco/minutes/pkg/utils"
)

// SnapshotSource reports the rolling summary state. *summary.Loop satisfies it.
type SnapshotSource interface {
	Snapshot() summary.Snapshot
}

type Config struct {
	// Snapshots provides the live rolling summary
	Snapshots SnapshotSource

	// Driver reads persisted segments and summary history
	Driver storage.Driver

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the minutes tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "minutes",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Snapshots == nil {
			return nil, errors.New("snapshot source is required")
		}
		if c.Driver == nil {
			return nil, errors.New("storage driver is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        currentSummaryToolName,
			Description: currentSummaryDescription,
		}, s.handleCurrentSummary)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        recentSegmentsToolName,
			Description: recentSegmentsDescription,
		}, s.handleRecentSegments)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        summaryHistoryToolName,
			Description: summaryHistoryDescription,
		}, s.handleSummaryHistory)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// MCPServer returns the underlying MCP server, for transports other than HTTP.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
