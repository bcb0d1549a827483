// Package server wires the MCP tools to an attached store and creates the
// server instance. No business logic lives here, only wiring.
package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
	"github.com/mesh-intelligence/backlog/internal/tools"
)

// Name is the server name reported to MCP clients.
const Name = "backlog"

// tool is the shape every handler in internal/tools shares.
type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates the MCP server with every backlog tool registered against
// store. The store must already be attached.
func New(store *sqlite.Backend, version string) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, t := range []tool{
		tools.NewBacklogListTool(store),
		tools.NewBacklogAddTool(store),
		tools.NewBacklogSplitTool(store),
		tools.NewBacklogMergeTool(store),
		tools.NewBacklogAssignDependenciesTool(store),
		tools.NewThemeRenameTool(store),
		tools.NewReportSprintTeamTool(store),
		tools.NewNoteTodoListTool(store),
		tools.NewNoteSetStatusTool(store),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Serve runs s over the stdio transport on in and out until ctx is done or
// in reaches EOF. Transport errors are logged through logger.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, logger *slog.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	logger.Info("mcp server listening", "transport", "stdio")
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

const instructions = `backlog tracks planned work for a single team.

Backlogs carry a task, a theme, an optional evaluation, a story-point estimation, a team, and a sprint.
Dependencies are work owned by other teams; a backlog can rely on many dependencies.
Meeting notes are to-dos or decisions linked to backlogs, dependencies, themes, and evaluations.

Use backlog_list to find ids before calling backlog_split, backlog_merge, or backlog_assign_dependencies.
Assigning dependencies replaces the whole set for each listed backlog.
report_sprint_team totals story points per sprint and team.`
