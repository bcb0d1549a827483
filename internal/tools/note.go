package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

// ─── NoteTodoListTool ───────────────────────────────────────────────────────

// NoteTodoListTool handles the note_todo_list MCP tool.
type NoteTodoListTool struct {
	store *sqlite.Backend
}

// NewNoteTodoListTool creates a NoteTodoListTool.
func NewNoteTodoListTool(store *sqlite.Backend) *NoteTodoListTool {
	return &NoteTodoListTool{store: store}
}

// noteLinkKeys are the numeric arguments passed through as note filters.
var noteLinkKeys = []string{"backlog_id", "dependency_id", "theme_id", "evaluation_id", "sub_backlog_id"}

// Definition returns the MCP tool definition for note_todo_list.
func (t *NoteTodoListTool) Definition() mcp.Tool {
	return mcp.NewTool("note_todo_list",
		mcp.WithDescription(
			"List to-do meeting notes, newest meeting first. Completed to-dos are hidden unless "+
				"include_completed is set. Optionally narrow to notes linked to one entity.",
		),
		mcp.WithBoolean("include_completed", mcp.Description("Include completed to-dos (default: false)")),
		mcp.WithNumber("backlog_id", mcp.Description("Only notes linked to this backlog")),
		mcp.WithNumber("dependency_id", mcp.Description("Only notes linked to this dependency")),
		mcp.WithNumber("theme_id", mcp.Description("Only notes linked to this theme")),
		mcp.WithNumber("evaluation_id", mcp.Description("Only notes linked to this evaluation")),
		mcp.WithNumber("sub_backlog_id", mcp.Description("Only notes linked to a backlog in this sub-backlog")),
	)
}

// Handle processes the note_todo_list tool call.
func (t *NoteTodoListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := types.Filter{
		"todo":              true,
		"include_completed": boolArg(req, "include_completed", false),
	}
	for _, key := range noteLinkKeys {
		id, err := optionalIntArg(req, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if id != nil {
			filter[key] = *id
		}
	}
	notes, err := t.store.MeetingNotes().Fetch(ctx, filter)
	if err != nil {
		return failure("list to-dos", err), nil
	}
	return jsonResult(notes)
}

// ─── NoteSetStatusTool ──────────────────────────────────────────────────────

// NoteSetStatusTool handles the note_set_status MCP tool.
type NoteSetStatusTool struct {
	store *sqlite.Backend
}

// NewNoteSetStatusTool creates a NoteSetStatusTool.
func NewNoteSetStatusTool(store *sqlite.Backend) *NoteSetStatusTool {
	return &NoteSetStatusTool{store: store}
}

// Definition returns the MCP tool definition for note_set_status.
func (t *NoteSetStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("note_set_status",
		mcp.WithDescription(
			"Set the status of one or more meeting notes. All notes change or none do.",
		),
		mcp.WithArray("ids", mcp.Required(), idsItems, mcp.Description("Notes to update")),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Enum(types.NoteStatusOpen, types.NoteStatusInProgress, types.NoteStatusCompleted),
			mcp.Description("New status"),
		),
	)
}

// Handle processes the note_set_status tool call.
func (t *NoteSetStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := idsArg(req, "ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ids) == 0 {
		return mcp.NewToolResultError("'ids' is required"), nil
	}
	status := req.GetString("status", "")
	if !types.ValidNoteStatus(status) {
		return mcp.NewToolResultError(fmt.Sprintf("'status' must be one of %s, %s, %s",
			types.NoteStatusOpen, types.NoteStatusInProgress, types.NoteStatusCompleted)), nil
	}

	statuses := make(map[int64]string, len(ids))
	for _, id := range ids {
		statuses[id] = status
	}
	if err := t.store.MeetingNotes().SetStatuses(ctx, statuses); err != nil {
		return failure("set note status", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d notes set to %s", len(statuses), status)), nil
}
