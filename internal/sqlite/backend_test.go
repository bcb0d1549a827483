package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/backlog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupBackend attaches a backend on a fresh store under t.TempDir and
// detaches it when the test ends.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	require.NoError(t, b.Attach(t.Context(), config))
	t.Cleanup(func() { b.Detach() })
	return b
}

// addBacklog stores a backlog with the given task, theme, and estimation.
func addBacklog(t *testing.T, b *Backend, task, theme string, estimation *int64) int64 {
	t.Helper()
	id, err := b.Backlogs().Set(t.Context(), &types.Backlog{
		Task:       task,
		Theme:      theme,
		Estimation: estimation,
	}, nil)
	require.NoError(t, err)
	return id
}

func addDependency(t *testing.T, b *Backend, task, team string) int64 {
	t.Helper()
	id, err := b.Dependencies().Set(t.Context(), &types.Dependency{Task: task, Team: team}, nil)
	require.NoError(t, err)
	return id
}

func TestBackend_Attach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: filepath.Join(dir, "nested")}

	require.NoError(t, b.Attach(t.Context(), config))
	t.Cleanup(func() { b.Detach() })

	_, err := os.Stat(filepath.Join(dir, "nested", types.DefaultDBFile))
	assert.NoError(t, err, "database file should be created")

	assert.ErrorIs(t, b.Attach(t.Context(), config), types.ErrAlreadyAttached)

	version, err := b.SchemaVersion(t.Context())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func TestBackend_AttachRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		config types.Config
		want   error
	}{
		{"empty backend", types.Config{DataDir: t.TempDir()}, types.ErrBackendEmpty},
		{"unknown backend", types.Config{Backend: "postgres", DataDir: t.TempDir()}, types.ErrBackendUnknown},
		{"db file with path", types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), DBFile: "a/b.db"}, types.ErrDBFileInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBackend().Attach(t.Context(), tt.config)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(t.Context(), types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should be a no-op")

	_, err := b.Backlogs().Fetch(t.Context(), nil)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Backlogs().Set(t.Context(), &types.Backlog{Task: "x", Theme: "y"}, nil)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	dir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(t.Context(), config))
	id := addBacklog(t, b, "persisted", "Payments", types.Int64(3))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(t.Context(), config))
	t.Cleanup(func() { b2.Detach() })

	got, err := b2.Backlogs().Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Task)
	assert.Equal(t, "Payments", got.Theme)
}
