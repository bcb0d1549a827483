package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newThemeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Manage themes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a theme",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, s *session) error {
					id, err := s.store.Themes().Create(ctx, args[0])
					if err != nil {
						return err
					}
					return done(cmd, types.Theme{ID: id, Name: strings.TrimSpace(args[0])}, "created theme %d", id)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List themes with their backlog counts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, s *session) error {
					themes, err := s.store.Themes().Fetch(ctx)
					if err != nil {
						return err
					}
					return emit(cmd, themes, func() render.Table {
						t := render.Table{Headers: []string{"id", "name", "backlogs"}}
						for _, th := range themes {
							t.Rows = append(t.Rows, []string{formatID(th.ID), th.Name, strconv.Itoa(th.BacklogCount)})
						}
						return t
					})
				})
			},
		},
		&cobra.Command{
			Use:   "rename <old-name> <new-name>",
			Short: "Rename a theme",
			Long:  "Rename a theme. Backlogs under it follow the new name. A taken name changes nothing.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, s *session) error {
					if err := s.store.Themes().Rename(ctx, args[0], args[1]); err != nil {
						return err
					}
					return done(cmd, map[string]string{"old_name": args[0], "new_name": args[1]},
						"renamed theme %q to %q", args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id|name>...",
			Short: "Delete themes",
			Long:  "Delete themes. Backlogs that used them are left without a theme.",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(cmd, func(ctx context.Context, s *session) error {
					ids, err := lookupIDs(args, func(name string) (int64, error) {
						th, err := s.store.Themes().GetByName(ctx, name)
						if err != nil {
							return 0, err
						}
						return th.ID, nil
					})
					if err != nil {
						return err
					}
					if err := s.store.Themes().Delete(ctx, ids...); err != nil {
						return err
					}
					return done(cmd, map[string][]int64{"deleted": ids}, "deleted %d themes", len(ids))
				})
			},
		},
	)
	return cmd
}

// lookupIDs turns each argument into an id: numbers are taken as ids,
// anything else is resolved as a name.
func lookupIDs(args []string, byName func(string) (int64, error)) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
			continue
		}
		id, err := byName(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newEvaluationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluation",
		Aliases: []string{"eval"},
		Short:   "Manage evaluations",
	}

	var addNote string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				e := &types.Evaluation{Name: args[0], Note: addNote}
				id, err := s.store.Evaluations().Create(ctx, e)
				if err != nil {
					return err
				}
				return done(cmd, e, "created evaluation %d", id)
			})
		},
	}
	add.Flags().StringVar(&addNote, "note", "", "explanatory note")

	list := &cobra.Command{
		Use:   "list",
		Short: "List evaluations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				evals, err := s.store.Evaluations().Fetch(ctx)
				if err != nil {
					return err
				}
				return emit(cmd, evals, func() render.Table {
					t := render.Table{Headers: []string{"id", "name", "note"}}
					for _, e := range evals {
						t.Rows = append(t.Rows, []string{formatID(e.ID), e.Name, e.Note})
					}
					return t
				})
			})
		},
	}

	var updName, updNote string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename an evaluation or change its note",
		Long:  "Update changes only the fields whose flags are given. A taken name changes nothing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				e, err := s.store.Evaluations().Get(ctx, id)
				if err != nil {
					return err
				}
				if changed(cmd, "name") {
					e.Name = updName
				}
				if changed(cmd, "note") {
					e.Note = updNote
				}
				if err := s.store.Evaluations().Update(ctx, e); err != nil {
					return err
				}
				return done(cmd, e, "updated evaluation %d", id)
			})
		},
	}
	update.Flags().StringVar(&updName, "name", "", "new name")
	update.Flags().StringVar(&updNote, "note", "", "new note")

	del := &cobra.Command{
		Use:   "delete <id|name>...",
		Short: "Delete evaluations",
		Long:  "Delete evaluations. Backlogs that used them are left without one.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				ids, err := lookupIDs(args, func(name string) (int64, error) {
					e, err := s.store.Evaluations().GetByName(ctx, name)
					if err != nil {
						return 0, err
					}
					return e.ID, nil
				})
				if err != nil {
					return err
				}
				if err := s.store.Evaluations().Delete(ctx, ids...); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"deleted": ids}, "deleted %d evaluations", len(ids))
			})
		},
	}

	cmd.AddCommand(add, list, update, del)
	return cmd
}
