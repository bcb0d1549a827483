package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newMeetingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Manage meetings",
	}

	var addTitle, addAt string
	add := &cobra.Command{
		Use:     "add",
		Short:   "Record a meeting",
		Example: `  backlog meeting add --title "Sprint review" --at "2026-03-02 10:00"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				m := &types.Meeting{Title: addTitle, Datetime: addAt}
				id, err := s.store.Meetings().Set(ctx, m)
				if err != nil {
					return err
				}
				return done(cmd, m, "created meeting %d", id)
			})
		},
	}
	add.Flags().StringVar(&addTitle, "title", "", "title (required)")
	add.Flags().StringVar(&addAt, "at", "", `date and time, e.g. "2026-03-02 10:00" (required)`)
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("at")

	list := &cobra.Command{
		Use:   "list",
		Short: "List meetings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.store.Meetings().Fetch(ctx)
				if err != nil {
					return err
				}
				return emit(cmd, rows, func() render.Table {
					t := render.Table{Headers: []string{"id", "title", "when"}}
					for _, m := range rows {
						t.Rows = append(t.Rows, []string{formatID(m.ID), m.Title, m.Datetime})
					}
					return t
				})
			})
		},
	}

	var updTitle, updAt string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				m, err := s.store.Meetings().Get(ctx, id)
				if err != nil {
					return err
				}
				if changed(cmd, "title") {
					m.Title = updTitle
				}
				if changed(cmd, "at") {
					m.Datetime = updAt
				}
				if _, err := s.store.Meetings().Set(ctx, m); err != nil {
					return err
				}
				return done(cmd, m, "updated meeting %d", id)
			})
		},
	}
	update.Flags().StringVar(&updTitle, "title", "", "title")
	update.Flags().StringVar(&updAt, "at", "", "date and time")

	del := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete meetings",
		Long:  "Delete meetings. Their notes are kept without a meeting.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Meetings().Delete(ctx, ids...); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"deleted": ids}, "deleted %d meetings", len(ids))
			})
		},
	}

	cmd.AddCommand(add, list, update, del)
	return cmd
}
