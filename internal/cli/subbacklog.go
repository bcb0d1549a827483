package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newSubBacklogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sub-backlog",
		Aliases: []string{"sub"},
		Short:   "Manage sub-backlogs that group backlog items",
	}
	cmd.AddCommand(
		newSubBacklogAddCmd(),
		newSubBacklogListCmd(),
		newSubBacklogShowCmd(),
		newSubBacklogUpdateCmd(),
		newSubBacklogDeleteCmd(),
	)
	return cmd
}

func subBacklogTable(rows []*types.SubBacklog) render.Table {
	t := render.Table{Headers: []string{"id", "title", "note", "backlogs"}}
	for _, s := range rows {
		t.Rows = append(t.Rows, []string{formatID(s.ID), s.Title, s.Note, strings.Join(s.BacklogTasks, "; ")})
	}
	return t
}

func newSubBacklogAddCmd() *cobra.Command {
	var title, note, backlogs string
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Create a sub-backlog",
		Example: `  backlog sub-backlog add --title "Onboarding" --backlogs 2,5`,
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
				sb := &types.SubBacklog{Title: title, Note: note}
				id, err := s.store.SubBacklogs().Set(ctx, sb, linked)
				if err != nil {
					return err
				}
				return done(cmd, sb, "created sub-backlog %d", id)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title (required)")
	cmd.Flags().StringVar(&note, "note", "", "note")
	cmd.Flags().StringVar(&backlogs, "backlogs", "", "comma-separated ids of grouped backlogs")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newSubBacklogListCmd() *cobra.Command {
	var title string
	var backlogID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sub-backlogs with the tasks they group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := types.Filter{}
			if title != "" {
				filter["title"] = title
			}
			if changed(cmd, "backlog") {
				filter["backlog_id"] = backlogID
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.store.SubBacklogs().Fetch(ctx, filter)
				if err != nil {
					return err
				}
				return emit(cmd, rows, func() render.Table { return subBacklogTable(rows) })
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "filter by title substring")
	cmd.Flags().Int64Var(&backlogID, "backlog", 0, "only sub-backlogs grouping this backlog id")
	return cmd
}

type subBacklogDetail struct {
	*types.SubBacklog
	Backlogs []*types.Backlog `json:"backlogs"`
}

func newSubBacklogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a sub-backlog and its backlogs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				sb, err := s.store.SubBacklogs().Get(ctx, id)
				if err != nil {
					return err
				}
				backlogs, err := s.store.SubBacklogs().Backlogs(ctx, id)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printer(cmd).JSON(subBacklogDetail{SubBacklog: sb, Backlogs: backlogs})
				}
				p := printer(cmd)
				if err := p.Table(subBacklogTable([]*types.SubBacklog{sb})); err != nil {
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

func newSubBacklogUpdateCmd() *cobra.Command {
	var title, note, backlogs string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a sub-backlog",
		Long:  "Update changes only the fields whose flags are given. --backlogs replaces the grouped set.",
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
				sb, err := s.store.SubBacklogs().Get(ctx, id)
				if err != nil {
					return err
				}
				if changed(cmd, "title") {
					sb.Title = title
				}
				if changed(cmd, "note") {
					sb.Note = note
				}
				sb.BacklogTasks = nil
				if _, err := s.store.SubBacklogs().Set(ctx, sb, linked); err != nil {
					return err
				}
				return done(cmd, sb, "updated sub-backlog %d", id)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&note, "note", "", "note")
	cmd.Flags().StringVar(&backlogs, "backlogs", "", "comma-separated backlog ids; empty clears")
	return cmd
}

func newSubBacklogDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete sub-backlogs",
		Long:  "Delete sub-backlogs. The backlogs they grouped are kept.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.SubBacklogs().Delete(ctx, ids...); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"deleted": ids}, "deleted %d sub-backlogs", len(ids))
			})
		},
	}
}
