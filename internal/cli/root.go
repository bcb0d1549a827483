// Package cli implements the backlog command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/importer"
	"github.com/mesh-intelligence/backlog/internal/logging"
	"github.com/mesh-intelligence/backlog/internal/paths"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

var flags rootFlags

// NewRootCmd creates the top-level "backlog" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}

	root := &cobra.Command{
		Use:   "backlog",
		Short: "A single-team backlog tracker",
		Long: "backlog keeps backlogs, dependencies on other teams, themes, evaluations,\n" +
			"sub-backlogs, meetings, and meeting notes in a local SQLite store.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.backlog-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newMigrateCmd(),
		newBacklogCmd(),
		newDependencyCmd(),
		newThemeCmd(),
		newEvaluationCmd(),
		newSubBacklogCmd(),
		newMeetingCmd(),
		newNoteCmd(),
		newReportCmd(),
		newImportCmd(),
		newExportCmd(),
		newServeCmd(),
	)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})
	markUsageArgs(root)

	return root
}

// markUsageArgs wraps every positional argument validator so its failures
// count as usage errors.
func markUsageArgs(cmd *cobra.Command) {
	if validate := cmd.Args; validate != nil {
		cmd.Args = func(c *cobra.Command, args []string) error {
			if err := validate(c, args); err != nil {
				return &usageError{msg: err.Error()}
			}
			return nil
		}
	}
	for _, sub := range cmd.Commands() {
		markUsageArgs(sub)
	}
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// usageError marks a bad argument or flag combination.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// userErrors are failures the caller can fix by changing the input.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrDuplicateName,
	types.ErrInvalidFilter,
	types.ErrInvalidTask,
	types.ErrInvalidTheme,
	types.ErrInvalidTeam,
	types.ErrInvalidEstimation,
	types.ErrInvalidName,
	types.ErrInvalidTitle,
	types.ErrInvalidDatetime,
	types.ErrInvalidNote,
	types.ErrInvalidNoteType,
	types.ErrInvalidStatus,
	types.ErrEstimationRequired,
	types.ErrSplitTooFew,
	types.ErrSplitMismatch,
	types.ErrMergeTooFew,
	types.ErrSurvivorNotMerged,
	types.ErrMappingMissing,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrDBFileInvalid,
	importer.ErrUnknownField,
	importer.ErrUnknownColumn,
	importer.ErrEmptyFile,
}

// exitCode maps err to exitUserError for input problems and exitSysError
// for everything else.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "required flag(s)") ||
		strings.HasPrefix(err.Error(), "unknown command") {
		return exitUserError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// newLogger builds the command logger on stderr from config and the
// --log-level flag.
func newLogger(cmd *cobra.Command, s settings) *slog.Logger {
	level := s.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	return logging.New(cmd.ErrOrStderr(), logging.LevelFromString(level), s.LogFormat)
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flags.configDir)
}

// resolveDataDir returns the data directory from flag, config, env, or
// default.
func resolveDataDir(configValue string) (string, error) {
	return paths.ResolveDataDir(flags.dataDir, configValue)
}
