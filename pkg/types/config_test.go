package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "db file with a path separator is rejected",
			config:  Config{Backend: "sqlite", DBFile: "../elsewhere.db"},
			wantErr: ErrDBFileInvalid,
		},
		{
			name:   "valid sqlite config",
			config: Config{Backend: "sqlite", DataDir: "/tmp/data"},
		},
		{
			name:   "sqlite with empty DataDir is valid at config level",
			config: Config{Backend: "sqlite"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	assert.Equal(t, DefaultDBFile, c.DatabaseFile())
	assert.Equal(t, DefaultDependencyTeams, c.Teams())

	c = Config{DBFile: "other.db", DependencyTeams: []string{"Core"}}
	assert.Equal(t, "other.db", c.DatabaseFile())
	assert.Equal(t, []string{"Core"}, c.Teams())
}

func TestCanonicalTeam(t *testing.T) {
	c := Config{}

	team, ok := c.CanonicalTeam("  integration ")
	require.True(t, ok)
	assert.Equal(t, "Integration", team)

	_, ok = c.CanonicalTeam("Marketing")
	assert.False(t, ok)

	_, ok = c.CanonicalTeam("   ")
	assert.False(t, ok)
}
