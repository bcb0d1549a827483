package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
)

// ReportSprintTeamTool handles the report_sprint_team MCP tool.
type ReportSprintTeamTool struct {
	store *sqlite.Backend
}

// NewReportSprintTeamTool creates a ReportSprintTeamTool.
func NewReportSprintTeamTool(store *sqlite.Backend) *ReportSprintTeamTool {
	return &ReportSprintTeamTool{store: store}
}

// Definition returns the MCP tool definition for report_sprint_team.
func (t *ReportSprintTeamTool) Definition() mcp.Tool {
	return mcp.NewTool("report_sprint_team",
		mcp.WithDescription(
			"Story points per sprint and team. Backlogs without a sprint or team are left out "+
				"and a missing estimation counts as zero. Set pivot to get a sprint by team matrix.",
		),
		mcp.WithBoolean("pivot", mcp.Description("Return {sprints, teams, points} instead of cells (default: false)")),
	)
}

// Handle processes the report_sprint_team tool call.
func (t *ReportSprintTeamTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if boolArg(req, "pivot", false) {
		pivot, err := t.store.Reports().SprintTeamPivot(ctx)
		if err != nil {
			return failure("build sprint report", err), nil
		}
		return jsonResult(pivot)
	}
	cells, err := t.store.Reports().SprintTeam(ctx)
	if err != nil {
		return failure("build sprint report", err), nil
	}
	return jsonResult(cells)
}
