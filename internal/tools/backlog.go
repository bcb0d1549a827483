package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

// ─── BacklogListTool ────────────────────────────────────────────────────────

// BacklogListTool handles the backlog_list MCP tool.
type BacklogListTool struct {
	store *sqlite.Backend
}

// NewBacklogListTool creates a BacklogListTool.
func NewBacklogListTool(store *sqlite.Backend) *BacklogListTool {
	return &BacklogListTool{store: store}
}

// backlogFilterKeys are the string arguments passed through as list filters.
var backlogFilterKeys = []string{"search", "task", "theme", "evaluation", "team", "sprint"}

// Definition returns the MCP tool definition for backlog_list.
func (t *BacklogListTool) Definition() mcp.Tool {
	return mcp.NewTool("backlog_list",
		mcp.WithDescription(
			"List backlogs with their theme, evaluation, estimation, team, sprint, and dependency count. "+
				"All filters are optional and combine with AND.",
		),
		mcp.WithString("search", mcp.Description("Substring matched against task, details, LOB, theme, and evaluation")),
		mcp.WithString("task", mcp.Description("Substring of the task")),
		mcp.WithString("theme", mcp.Description("Exact theme name")),
		mcp.WithString("evaluation", mcp.Description("Exact evaluation name")),
		mcp.WithString("team", mcp.Description("Exact team")),
		mcp.WithString("sprint", mcp.Description("Exact sprint")),
	)
}

// Handle processes the backlog_list tool call.
func (t *BacklogListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := types.Filter{}
	for _, key := range backlogFilterKeys {
		if v := req.GetString(key, ""); v != "" {
			filter[key] = v
		}
	}
	backlogs, err := t.store.Backlogs().Fetch(ctx, filter)
	if err != nil {
		return failure("list backlogs", err), nil
	}
	return jsonResult(backlogs)
}

// ─── BacklogAddTool ─────────────────────────────────────────────────────────

// BacklogAddTool handles the backlog_add MCP tool.
type BacklogAddTool struct {
	store *sqlite.Backend
}

// NewBacklogAddTool creates a BacklogAddTool.
func NewBacklogAddTool(store *sqlite.Backend) *BacklogAddTool {
	return &BacklogAddTool{store: store}
}

// Definition returns the MCP tool definition for backlog_add.
func (t *BacklogAddTool) Definition() mcp.Tool {
	return mcp.NewTool("backlog_add",
		mcp.WithDescription(
			"Create a backlog. The theme and evaluation are created when they do not exist yet.",
		),
		mcp.WithString("task", mcp.Required(), mcp.Description("Short task title")),
		mcp.WithString("theme", mcp.Required(), mcp.Description("Theme name")),
		mcp.WithString("task_details", mcp.Description("Longer description")),
		mcp.WithString("lob", mcp.Description("Line of business")),
		mcp.WithString("evaluation", mcp.Description("Evaluation name")),
		mcp.WithNumber("estimation", mcp.Description("Story points, a non-negative integer")),
		mcp.WithString("team", mcp.Description("Owning team")),
		mcp.WithString("sprint", mcp.Description("Sprint label, e.g. 'Sprint 4'")),
		mcp.WithArray("dependency_ids", idsItems, mcp.Description("Dependencies this backlog relies on")),
	)
}

// Handle processes the backlog_add tool call.
func (t *BacklogAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	estimation, err := optionalIntArg(req, "estimation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b := &types.Backlog{
		Task:        req.GetString("task", ""),
		Theme:       req.GetString("theme", ""),
		TaskDetails: req.GetString("task_details", ""),
		LOB:         req.GetString("lob", ""),
		Evaluation:  req.GetString("evaluation", ""),
		Estimation:  estimation,
		Team:        req.GetString("team", ""),
		Sprint:      req.GetString("sprint", ""),
	}
	deps, err := idsArg(req, "dependency_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var links *types.BacklogLinks
	if deps != nil {
		links = &types.BacklogLinks{DependencyIDs: deps}
	}

	id, err := t.store.Backlogs().Set(ctx, b, links)
	if err != nil {
		return failure("create backlog", err), nil
	}
	created, err := t.store.Backlogs().Get(ctx, id)
	if err != nil {
		return failure("read backlog", err), nil
	}
	return jsonResult(created)
}

// ─── BacklogSplitTool ───────────────────────────────────────────────────────

// BacklogSplitTool handles the backlog_split MCP tool.
type BacklogSplitTool struct {
	store *sqlite.Backend
}

// NewBacklogSplitTool creates a BacklogSplitTool.
func NewBacklogSplitTool(store *sqlite.Backend) *BacklogSplitTool {
	return &BacklogSplitTool{store: store}
}

// Definition returns the MCP tool definition for backlog_split.
func (t *BacklogSplitTool) Definition() mcp.Tool {
	return mcp.NewTool("backlog_split",
		mcp.WithDescription(
			"Split a backlog into two or more parts whose estimations sum to the original. "+
				"The parts inherit theme, evaluation, team, sprint, LOB, image, and dependencies; "+
				"the original backlog is deleted.",
		),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Backlog to split")),
		mcp.WithArray("parts",
			mcp.Required(),
			mcp.Description("Parts as {task, task_details, estimation}"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task":         map[string]any{"type": "string"},
					"task_details": map[string]any{"type": "string"},
					"estimation":   map[string]any{"type": "integer"},
				},
				"required": []string{"task", "estimation"},
			}),
		),
	)
}

// Handle processes the backlog_split tool call.
func (t *BacklogSplitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := intArg(req, "id", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if id == 0 {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	parts, err := splitParts(req.GetArguments()["parts"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ids, err := t.store.Backlogs().Split(ctx, id, parts)
	if err != nil {
		return failure("split backlog", err), nil
	}
	return jsonResult(map[string]any{"split": id, "created": ids})
}

func splitParts(raw any) ([]types.SplitPart, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("'parts' must be an array")
	}
	parts := make([]types.SplitPart, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("part %d must be an object", i+1)
		}
		task, _ := obj["task"].(string)
		details, _ := obj["task_details"].(string)
		num, ok := obj["estimation"].(float64)
		if !ok {
			return nil, fmt.Errorf("part %d needs a numeric 'estimation'", i+1)
		}
		est, err := wholeNumber("estimation", num)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i+1, err)
		}
		parts = append(parts, types.SplitPart{Task: task, TaskDetails: details, Estimation: est})
	}
	return parts, nil
}

// ─── BacklogMergeTool ───────────────────────────────────────────────────────

// BacklogMergeTool handles the backlog_merge MCP tool.
type BacklogMergeTool struct {
	store *sqlite.Backend
}

// NewBacklogMergeTool creates a BacklogMergeTool.
func NewBacklogMergeTool(store *sqlite.Backend) *BacklogMergeTool {
	return &BacklogMergeTool{store: store}
}

// Definition returns the MCP tool definition for backlog_merge.
func (t *BacklogMergeTool) Definition() mcp.Tool {
	return mcp.NewTool("backlog_merge",
		mcp.WithDescription(
			"Merge backlogs into one survivor. The survivor gains the union of their dependencies "+
				"and the sum of their estimations; the others are deleted.",
		),
		mcp.WithArray("ids", mcp.Required(), idsItems, mcp.Description("Backlogs to merge, at least two")),
		mcp.WithNumber("survivor_id", mcp.Required(), mcp.Description("Backlog that remains; must be in ids")),
	)
}

// Handle processes the backlog_merge tool call.
func (t *BacklogMergeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := idsArg(req, "ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	survivor, err := intArg(req, "survivor_id", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if survivor == 0 {
		return mcp.NewToolResultError("'survivor_id' is required"), nil
	}

	if err := t.store.Backlogs().Merge(ctx, types.MergeRequest{SurvivorID: survivor, IDs: ids}); err != nil {
		return failure("merge backlogs", err), nil
	}
	merged, err := t.store.Backlogs().Get(ctx, survivor)
	if err != nil {
		return failure("read backlog", err), nil
	}
	return jsonResult(merged)
}

// ─── BacklogAssignDependenciesTool ──────────────────────────────────────────

// BacklogAssignDependenciesTool handles the backlog_assign_dependencies MCP tool.
type BacklogAssignDependenciesTool struct {
	store *sqlite.Backend
}

// NewBacklogAssignDependenciesTool creates a BacklogAssignDependenciesTool.
func NewBacklogAssignDependenciesTool(store *sqlite.Backend) *BacklogAssignDependenciesTool {
	return &BacklogAssignDependenciesTool{store: store}
}

// Definition returns the MCP tool definition for backlog_assign_dependencies.
func (t *BacklogAssignDependenciesTool) Definition() mcp.Tool {
	return mcp.NewTool("backlog_assign_dependencies",
		mcp.WithDescription(
			"Replace the dependency set of each listed backlog with dependency_ids. "+
				"An empty dependency_ids clears them.",
		),
		mcp.WithArray("backlog_ids", mcp.Required(), idsItems, mcp.Description("Backlogs to update")),
		mcp.WithArray("dependency_ids", mcp.Required(), idsItems, mcp.Description("New dependency set")),
	)
}

// Handle processes the backlog_assign_dependencies tool call.
func (t *BacklogAssignDependenciesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	backlogs, err := idsArg(req, "backlog_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(backlogs) == 0 {
		return mcp.NewToolResultError("'backlog_ids' is required"), nil
	}
	deps, err := idsArg(req, "dependency_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if deps == nil {
		deps = []int64{}
	}

	if err := t.store.Backlogs().AssignDependencies(ctx, backlogs, deps); err != nil {
		return failure("assign dependencies", err), nil
	}
	return mcp.NewToolResultText(
		fmt.Sprintf("Assigned %d dependencies to %d backlogs", len(deps), len(backlogs)),
	), nil
}
