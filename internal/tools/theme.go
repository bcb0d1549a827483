package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
)

// ThemeRenameTool handles the theme_rename MCP tool.
type ThemeRenameTool struct {
	store *sqlite.Backend
}

// NewThemeRenameTool creates a ThemeRenameTool.
func NewThemeRenameTool(store *sqlite.Backend) *ThemeRenameTool {
	return &ThemeRenameTool{store: store}
}

// Definition returns the MCP tool definition for theme_rename.
func (t *ThemeRenameTool) Definition() mcp.Tool {
	return mcp.NewTool("theme_rename",
		mcp.WithDescription(
			"Rename a theme. Every backlog under it follows the new name. "+
				"Fails without changing anything when the new name is taken.",
		),
		mcp.WithString("old_name", mcp.Required(), mcp.Description("Current theme name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New theme name")),
	)
}

// Handle processes the theme_rename tool call.
func (t *ThemeRenameTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldName := req.GetString("old_name", "")
	newName := req.GetString("new_name", "")
	if oldName == "" {
		return mcp.NewToolResultError("'old_name' is required"), nil
	}
	if newName == "" {
		return mcp.NewToolResultError("'new_name' is required"), nil
	}

	if err := t.store.Themes().Rename(ctx, oldName, newName); err != nil {
		return failure("rename theme", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Theme %q renamed to %q", oldName, newName)), nil
}
