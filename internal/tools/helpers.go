// Package tools provides the MCP tool handlers that expose the backlog store
// to agents.
//
// Every tool follows one shape:
//   - a struct holding the store, built by a NewXxxTool constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() parses arguments, calls the store, and returns JSON text
//
// Domain failures (validation, not found, duplicates) come back as tool
// errors rather than Go errors so the agent sees the message.
package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
)

// wholeNumber converts a JSON number to a non-negative int64. Fractions,
// negatives, and values past the int64 range are rejected rather than
// truncated.
func wholeNumber(key string, v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < 0 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("'%s' must be a non-negative whole number, got %v", key, v)
	}
	return int64(v), nil
}

// intArg extracts an integer argument, returning defaultVal when the key is
// missing or not a number (JSON numbers arrive as float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int64) (int64, error) {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal, nil
	}
	return wholeNumber(key, v)
}

// optionalIntArg returns nil when key is absent.
func optionalIntArg(req mcp.CallToolRequest, key string) (*int64, error) {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil, nil
	}
	n, err := wholeNumber(key, v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// idsArg extracts an array of integer ids. Non-numeric elements are an error.
func idsArg(req mcp.CallToolRequest, key string) ([]int64, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("'%s' must be an array of ids", key)
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		n, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("'%s' must be an array of ids", key)
		}
		id, err := wholeNumber(key, n)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// jsonResult encodes v as the tool's text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// failure turns a store error into a tool error result.
func failure(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
}

var idsItems = mcp.Items(map[string]any{"type": "integer"})
