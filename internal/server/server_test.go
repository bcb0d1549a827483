package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/backlog/internal/sqlite"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func TestNew_RegistersTools(t *testing.T) {
	store := sqlite.NewBackend()
	require.NoError(t, store.Attach(t.Context(), types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { _ = store.Detach() })

	s := New(store, "test")

	initResp := s.HandleMessage(t.Context(), json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`))
	initJSON, err := json.Marshal(initResp)
	require.NoError(t, err)
	assert.Contains(t, string(initJSON), `"name":"backlog"`)

	resp := s.HandleMessage(t.Context(), json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	var names []string
	for _, tool := range decoded.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"backlog_list",
		"backlog_add",
		"backlog_split",
		"backlog_merge",
		"backlog_assign_dependencies",
		"theme_rename",
		"report_sprint_team",
		"note_todo_list",
		"note_set_status",
	}, names)
}
