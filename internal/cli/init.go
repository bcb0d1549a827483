package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/pkg/sqlite"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize backlog storage",
		Long: "Create the configuration and data directories, write a default config.yaml\n" +
			"when none exists, and create or migrate the database.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

type initResult struct {
	ConfigFile    string `json:"config_file"`
	ConfigWritten bool   `json:"config_written"`
	Database      string `json:"database"`
	SchemaVersion int    `json:"schema_version"`
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	s, err := loadSettings(configDir)
	if err != nil {
		return err
	}
	dataDir, err := resolveDataDir(s.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	written := s
	written.DataDir = dataDir
	wrote, err := writeConfigIfMissing(configDir, written)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	logger := newLogger(cmd, s)
	store, err := sqlite.Open(cmd.Context(), s.storeConfig(dataDir), logger)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	version, err := store.SchemaVersion(cmd.Context())
	if detachErr := store.Detach(); err == nil && detachErr != nil {
		err = detachErr
	}
	if err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	cfg := s.storeConfig(dataDir)
	result := initResult{
		ConfigFile:    filepath.Join(configDir, configFileExt),
		ConfigWritten: wrote,
		Database:      filepath.Join(dataDir, cfg.DatabaseFile()),
		SchemaVersion: version,
	}
	return done(cmd, result, "backlog initialized: %s (schema v%d)", result.Database, version)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: "Apply pending schema migrations. Legacy stores are reshaped in place;\n" +
			"running it again on a current store changes nothing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				version, err := s.store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				return done(cmd, map[string]int{"schema_version": version}, "schema at version %d", version)
			})
		},
	}
}
