package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage meeting notes: to-dos and decisions",
	}
	cmd.AddCommand(
		newNoteAddCmd(),
		newNoteListCmd(),
		newNoteTodoCmd(),
		newNoteShowCmd(),
		newNoteUpdateCmd(),
		newNoteStatusCmd(),
		newNoteDeleteCmd(),
	)
	return cmd
}

func noteTable(rows []*types.MeetingNote) render.Table {
	t := render.Table{Headers: []string{"id", "date", "topic", "type", "note", "status", "meeting"}}
	for _, n := range rows {
		t.Rows = append(t.Rows, []string{
			formatID(n.ID), n.MeetingDate, n.Topic, n.NoteType, n.Note, n.Status, formatOptional(n.MeetingID),
		})
	}
	return t
}

// noteFields holds the flags shared by note add and update.
type noteFields struct {
	meeting                             int64
	date, topic, noteType, note         string
	status                              string
	backlogs, deps, themes, evaluations string
}

func (f *noteFields) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int64Var(&f.meeting, "meeting", 0, "meeting id; 0 detaches")
	fs.StringVar(&f.date, "date", "", "meeting date")
	fs.StringVar(&f.topic, "topic", "", "topic")
	fs.StringVar(&f.noteType, "type", types.NoteTypeTodo, "todo or decision")
	fs.StringVar(&f.note, "note", "", "note text")
	fs.StringVar(&f.status, "status", "", "open, in-progress, or completed")
	fs.StringVar(&f.backlogs, "backlogs", "", "comma-separated linked backlog ids")
	fs.StringVar(&f.deps, "deps", "", "comma-separated linked dependency ids")
	fs.StringVar(&f.themes, "themes", "", "comma-separated linked theme ids")
	fs.StringVar(&f.evaluations, "evaluations", "", "comma-separated linked evaluation ids")
}

// apply copies the changed flags onto n and returns the link sets to
// replace. Unchanged link flags stay nil.
func (f *noteFields) apply(cmd *cobra.Command, n *types.MeetingNote) (*types.NoteLinks, error) {
	if changed(cmd, "meeting") {
		n.MeetingID = nil
		if f.meeting > 0 {
			id := f.meeting
			n.MeetingID = &id
		}
	}
	if changed(cmd, "date") {
		n.MeetingDate = f.date
	}
	if changed(cmd, "topic") {
		n.Topic = f.topic
	}
	if changed(cmd, "type") || n.ID == 0 {
		n.NoteType = f.noteType
	}
	if changed(cmd, "note") {
		n.Note = f.note
	}
	if changed(cmd, "status") {
		n.Status = f.status
	}

	links := &types.NoteLinks{}
	for _, l := range []struct {
		flag string
		val  string
		dst  *[]int64
	}{
		{"backlogs", f.backlogs, &links.BacklogIDs},
		{"deps", f.deps, &links.DependencyIDs},
		{"themes", f.themes, &links.ThemeIDs},
		{"evaluations", f.evaluations, &links.EvaluationIDs},
	} {
		if !changed(cmd, l.flag) {
			continue
		}
		ids, err := idList(l.val)
		if err != nil {
			return nil, err
		}
		*l.dst = ids
	}
	return links, nil
}

func newNoteAddCmd() *cobra.Command {
	var f noteFields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a meeting note",
		Example: `  backlog note add --note "Confirm API freeze" --meeting 3 --backlogs 12
  backlog note add --type decision --note "Ship v2 in Sprint 8" --themes 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := &types.MeetingNote{}
			links, err := f.apply(cmd, n)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				id, err := s.store.MeetingNotes().Set(ctx, n, links)
				if err != nil {
					return err
				}
				return done(cmd, n, "created note %d", id)
			})
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

// noteFilter holds the list filters shared by note list and note todo.
type noteFilter struct {
	all                                                  bool
	status, noteType                                     string
	meeting, backlog, dep, theme, evaluation, subBacklog int64
}

func (f *noteFilter) bind(cmd *cobra.Command, todo bool) {
	fs := cmd.Flags()
	if todo {
		fs.BoolVar(&f.all, "all", false, "include completed to-dos")
	} else {
		fs.StringVar(&f.noteType, "type", "", "filter by note type")
	}
	fs.StringVar(&f.status, "status", "", "filter by status")
	fs.Int64Var(&f.meeting, "meeting", 0, "filter by meeting id")
	fs.Int64Var(&f.backlog, "backlog", 0, "notes linked to this backlog id")
	fs.Int64Var(&f.dep, "dependency", 0, "notes linked to this dependency id")
	fs.Int64Var(&f.theme, "theme", 0, "notes linked to this theme id")
	fs.Int64Var(&f.evaluation, "evaluation", 0, "notes linked to this evaluation id")
	fs.Int64Var(&f.subBacklog, "sub-backlog", 0, "notes linked to any backlog of this sub-backlog id")
}

func (f *noteFilter) build(cmd *cobra.Command, todo bool) types.Filter {
	filter := types.Filter{}
	if todo {
		filter["todo"] = true
		filter["include_completed"] = f.all
	}
	if f.status != "" {
		filter["status"] = f.status
	}
	if f.noteType != "" {
		filter["note_type"] = f.noteType
	}
	for _, id := range []struct {
		flag string
		key  string
		val  int64
	}{
		{"meeting", "meeting_id", f.meeting},
		{"backlog", "backlog_id", f.backlog},
		{"dependency", "dependency_id", f.dep},
		{"theme", "theme_id", f.theme},
		{"evaluation", "evaluation_id", f.evaluation},
		{"sub-backlog", "sub_backlog_id", f.subBacklog},
	} {
		if changed(cmd, id.flag) {
			filter[id.key] = id.val
		}
	}
	return filter
}

func runNoteList(cmd *cobra.Command, filter types.Filter) error {
	return withStore(cmd, func(ctx context.Context, s *session) error {
		rows, err := s.store.MeetingNotes().Fetch(ctx, filter)
		if err != nil {
			return err
		}
		return emit(cmd, rows, func() render.Table { return noteTable(rows) })
	})
}

func newNoteListCmd() *cobra.Command {
	var f noteFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meeting notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteList(cmd, f.build(cmd, false))
		},
	}
	f.bind(cmd, false)
	return cmd
}

func newNoteTodoCmd() *cobra.Command {
	var f noteFilter
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "List to-dos that are not completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNoteList(cmd, f.build(cmd, true))
		},
	}
	f.bind(cmd, true)
	return cmd
}

type noteDetail struct {
	*types.MeetingNote
	Links *types.NoteLinks `json:"links"`
}

func newNoteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note and everything linked to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				n, err := s.store.MeetingNotes().Get(ctx, id)
				if err != nil {
					return err
				}
				links, err := s.store.MeetingNotes().Links(ctx, id)
				if err != nil {
					return err
				}
				return emit(cmd, noteDetail{MeetingNote: n, Links: links}, func() render.Table {
					t := noteTable([]*types.MeetingNote{n})
					t.Headers = append(t.Headers, "backlogs", "deps", "themes", "evaluations")
					t.Rows[0] = append(t.Rows[0],
						joinIDs(links.BacklogIDs), joinIDs(links.DependencyIDs),
						joinIDs(links.ThemeIDs), joinIDs(links.EvaluationIDs))
					return t
				})
			})
		},
	}
}

func newNoteUpdateCmd() *cobra.Command {
	var f noteFields
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a meeting note",
		Long:  "Update changes only the fields whose flags are given. A link flag replaces that link set; empty clears it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				n, err := s.store.MeetingNotes().Get(ctx, id)
				if err != nil {
					return err
				}
				links, err := f.apply(cmd, n)
				if err != nil {
					return err
				}
				if _, err := s.store.MeetingNotes().Set(ctx, n, links); err != nil {
					return err
				}
				return done(cmd, n, "updated note %d", id)
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newNoteStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "status <id>...",
		Short:   "Move notes to a new status",
		Long:    "Move every listed note to the status given by --to. Nothing changes if any id is unknown.",
		Example: `  backlog note status 4 7 --to completed`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if !types.ValidNoteStatus(status) {
				return usagef("invalid status %q (want open, in-progress, or completed)", status)
			}
			statuses := make(map[int64]string, len(ids))
			for _, id := range ids {
				statuses[id] = status
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.MeetingNotes().SetStatuses(ctx, statuses); err != nil {
					return err
				}
				return done(cmd, map[string]any{"ids": ids, "status": status},
					"moved %d notes to %s", len(ids), status)
			})
		},
	}
	cmd.Flags().StringVar(&status, "to", "", "new status (required)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newNoteDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete meeting notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.MeetingNotes().Delete(ctx, ids...); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"deleted": ids}, "deleted %d notes", len(ids))
			})
		},
	}
}
