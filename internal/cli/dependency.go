package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newDependencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dependency",
		Aliases: []string{"dep"},
		Short:   "Manage dependencies on other teams",
	}
	cmd.AddCommand(
		newDependencyAddCmd(),
		newDependencyListCmd(),
		newDependencyShowCmd(),
		newDependencyUpdateCmd(),
		newDependencyDeleteCmd(),
		newDependencyLinkCmd(),
	)
	return cmd
}

func dependencyTable(rows []*types.Dependency) render.Table {
	t := render.Table{Headers: []string{"id", "task", "sub_task", "team"}}
	for _, d := range rows {
		t.Rows = append(t.Rows, []string{formatID(d.ID), d.Task, d.SubTask, d.Team})
	}
	return t
}

func newDependencyAddCmd() *cobra.Command {
	var task, subTask, team, backlogs string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a dependency",
		Long: `Create a dependency owned by another team. The team must be one of the
configured dependency_teams; case is ignored.`,
		Example: `  backlog dependency add --task "Ledger posting" --team PC --backlogs 3,7`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var linked []int64
			if changed(cmd, "backlogs") {
				var err error
				if linked, err = idList(backlogs); err != nil {
					return err
				}
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				d := &types.Dependency{Task: task, SubTask: subTask, Team: team}
				id, err := s.store.Dependencies().Set(ctx, d, linked)
				if err != nil {
					return teamHint(err, s)
				}
				return done(cmd, d, "created dependency %d", id)
			})
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "task (required)")
	cmd.Flags().StringVar(&subTask, "sub-task", "", "sub task")
	cmd.Flags().StringVar(&team, "team", "", "owning team (required)")
	cmd.Flags().StringVar(&backlogs, "backlogs", "", "comma-separated ids of backlogs that rely on it")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

// teamHint appends the configured teams to a team validation error.
func teamHint(err error, s *session) error {
	if !errors.Is(err, types.ErrInvalidTeam) {
		return err
	}
	return fmt.Errorf("%w (valid teams: %s)", err, strings.Join(s.store.Config().Teams(), ", "))
}

func newDependencyListCmd() *cobra.Command {
	var task, team, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := types.Filter{}
			for k, v := range map[string]string{"task": task, "team": team, "search": search} {
				if v != "" {
					filter[k] = v
				}
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.store.Dependencies().Fetch(ctx, filter)
				if err != nil {
					return err
				}
				return emit(cmd, rows, func() render.Table { return dependencyTable(rows) })
			})
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "filter by task substring")
	cmd.Flags().StringVar(&team, "team", "", "filter by team")
	cmd.Flags().StringVar(&search, "search", "", "substring of task, sub task, or team")
	return cmd
}

type dependencyDetail struct {
	*types.Dependency
	Backlogs []*types.Backlog `json:"backlogs"`
}

func newDependencyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a dependency and the backlogs that rely on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				d, err := s.store.Dependencies().Get(ctx, id)
				if err != nil {
					return err
				}
				backlogs, err := s.store.Dependencies().Backlogs(ctx, id)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printer(cmd).JSON(dependencyDetail{Dependency: d, Backlogs: backlogs})
				}
				p := printer(cmd)
				if err := p.Table(dependencyTable([]*types.Dependency{d})); err != nil {
					return err
				}
				if len(backlogs) == 0 {
					return nil
				}
				return p.Table(backlogTable(backlogs))
			})
		},
	}
}

func newDependencyUpdateCmd() *cobra.Command {
	var task, subTask, team, backlogs string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a dependency",
		Long:  "Update changes only the fields whose flags are given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var linked []int64
			if changed(cmd, "backlogs") {
				if linked, err = idList(backlogs); err != nil {
					return err
				}
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				d, err := s.store.Dependencies().Get(ctx, id)
				if err != nil {
					return err
				}
				if changed(cmd, "task") {
					d.Task = task
				}
				if changed(cmd, "sub-task") {
					d.SubTask = subTask
				}
				if changed(cmd, "team") {
					d.Team = team
				}
				if _, err := s.store.Dependencies().Set(ctx, d, linked); err != nil {
					return teamHint(err, s)
				}
				return done(cmd, d, "updated dependency %d", id)
			})
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "task")
	cmd.Flags().StringVar(&subTask, "sub-task", "", "sub task")
	cmd.Flags().StringVar(&team, "team", "", "owning team")
	cmd.Flags().StringVar(&backlogs, "backlogs", "", "comma-separated backlog ids; replaces the set, empty clears")
	return cmd
}

func newDependencyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Dependencies().Delete(ctx, ids...); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"deleted": ids}, "deleted %d dependencies", len(ids))
			})
		},
	}
}

func newDependencyLinkCmd() *cobra.Command {
	var backlogs string
	cmd := &cobra.Command{
		Use:   "link <id>",
		Short: "Replace the backlogs that rely on a dependency",
		Example: `  backlog dependency link 4 --backlogs 1,2,9
  backlog dependency link 4 --backlogs ""     # unlink every backlog`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			linked, err := idList(backlogs)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if _, err := s.store.Dependencies().Get(ctx, id); err != nil {
					return err
				}
				if err := s.store.Associations().Replace(ctx, types.RelDependencyBacklogs, id, linked); err != nil {
					return err
				}
				return done(cmd, map[string]any{"dependency_id": id, "backlog_ids": linked},
					"dependency %d linked to %d backlogs", id, len(linked))
			})
		},
	}
	cmd.Flags().StringVar(&backlogs, "backlogs", "", "comma-separated backlog ids (required, empty clears)")
	_ = cmd.MarkFlagRequired("backlogs")
	return cmd
}
