package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/sqlite"
)

// session is an attached store with the settings and logger it was opened
// with.
type session struct {
	store    *sqlite.Store
	settings settings
	logger   *slog.Logger
	dataDir  string
}

// openSession resolves directories, loads config, and attaches the store.
// The caller must call close.
func openSession(cmd *cobra.Command) (*session, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	s, err := loadSettings(configDir)
	if err != nil {
		return nil, err
	}
	dataDir, err := resolveDataDir(s.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	logger := newLogger(cmd, s)
	store, err := sqlite.Open(cmd.Context(), s.storeConfig(dataDir), logger)
	if err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return &session{store: store, settings: s, logger: logger, dataDir: dataDir}, nil
}

func (s *session) close() {
	if err := s.store.Detach(); err != nil {
		s.logger.Warn("detach store", "error", err)
	}
}

// withStore runs fn against an attached store and detaches afterwards.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(cmd.Context(), s)
}

func printer(cmd *cobra.Command) *render.Printer {
	return render.NewPrinter(cmd.OutOrStdout())
}

// emit prints v as JSON under --json and otherwise as the table built by
// tbl.
func emit(cmd *cobra.Command, v any, tbl func() render.Table) error {
	p := printer(cmd)
	if flags.jsonMode {
		return p.JSON(v)
	}
	return p.Table(tbl())
}

// done prints a confirmation line, or v as JSON under --json.
func done(cmd *cobra.Command, v any, format string, args ...any) error {
	p := printer(cmd)
	if flags.jsonMode {
		return p.JSON(v)
	}
	return p.Line(format, args...)
}

// parseID parses a positive entity id.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("invalid id %q", arg)
	}
	return id, nil
}

// parseIDs parses every argument as an id. Arguments may hold
// comma-separated lists.
func parseIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// idList parses a comma-separated id list. An empty list yields an empty,
// non-nil slice.
func idList(s string) ([]int64, error) {
	ids, err := parseIDs([]string{s})
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatOptional(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}
	return ""
}

// changed reports whether the named flag was set on the command line.
func changed(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Changed(name)
}
