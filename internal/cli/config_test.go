package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

func writeConfigYAML(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileExt), []byte(content), 0o644))
}

func TestLoadSettings_MissingFileGivesDefaults(t *testing.T) {
	s, err := loadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, defaultSettings(), s)
}

func TestLoadSettings_FileValues(t *testing.T) {
	dir := t.TempDir()
	writeConfigYAML(t, dir, "backend: sqlite\n"+
		"data_dir: /srv/backlog\n"+
		"db_file: team.db\n"+
		"log_level: debug\n"+
		"dependency_teams: [Core, Mobile]\n")

	s, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/backlog", s.DataDir)
	assert.Equal(t, "team.db", s.DBFile)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, []string{"Core", "Mobile"}, s.DependencyTeams)
}

func TestLoadSettings_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfigYAML(t, dir, "data_dir: /from/config\nlog_level: info\n")
	t.Setenv("BACKLOG_LOG_LEVEL", "error")
	t.Setenv("BACKLOG_DEPENDENCY_TEAMS", "Core, Mobile")
	t.Setenv("BACKLOG_DATA_DIR", "/from/env")

	s, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", s.LogLevel)
	assert.Equal(t, []string{"Core", "Mobile"}, s.DependencyTeams)
	assert.Equal(t, "/from/config", s.DataDir, "config data_dir ranks above the environment")
}

func TestLoadSettings_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigYAML(t, dir, "backend: [unclosed\n")

	_, err := loadSettings(dir)
	assert.Error(t, err)
}

func TestWriteConfigIfMissing(t *testing.T) {
	dir := t.TempDir()
	s := defaultSettings()
	s.DataDir = "/data"

	wrote, err := writeConfigIfMissing(dir, s)
	require.NoError(t, err)
	assert.True(t, wrote)

	loaded, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	s.LogLevel = "debug"
	wrote, err = writeConfigIfMissing(dir, s)
	require.NoError(t, err)
	assert.False(t, wrote, "an existing file is left alone")
}

func TestSettings_StoreConfig(t *testing.T) {
	s := defaultSettings()
	cfg := s.storeConfig("/data")
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, types.DefaultDBFile, cfg.DatabaseFile())
	assert.Equal(t, types.DefaultDependencyTeams, cfg.Teams())
}
