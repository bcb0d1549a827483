package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newBacklogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backlog",
		Aliases: []string{"bl"},
		Short:   "Manage backlogs",
	}
	cmd.AddCommand(
		newBacklogAddCmd(),
		newBacklogListCmd(),
		newBacklogShowCmd(),
		newBacklogUpdateCmd(),
		newBacklogDeleteCmd(),
		newBacklogSplitCmd(),
		newBacklogMergeCmd(),
		newBacklogAssignDepsCmd(),
		newBacklogAssignSubsCmd(),
		newBacklogSetEvaluationCmd(),
		newBacklogImageCmd(),
	)
	return cmd
}

func backlogTable(rows []*types.Backlog) render.Table {
	t := render.Table{Headers: []string{"id", "task", "theme", "evaluation", "estimation", "team", "sprint", "deps", "image"}}
	for _, b := range rows {
		t.Rows = append(t.Rows, []string{
			formatID(b.ID), b.Task, b.Theme, b.Evaluation, formatOptional(b.Estimation),
			b.Team, b.Sprint, strconv.Itoa(b.DependencyCount), formatBool(b.HasImage),
		})
	}
	return t
}

// backlogFields binds the editable backlog fields to flags.
type backlogFields struct {
	task, details, lob, theme, evaluation, estimation, team, sprint string
	image, deps, subs                                               string
}

func (f *backlogFields) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.task, "task", "", "short task title")
	cmd.Flags().StringVar(&f.details, "details", "", "longer description")
	cmd.Flags().StringVar(&f.lob, "lob", "", "line of business")
	cmd.Flags().StringVar(&f.theme, "theme", "", "theme name, created when absent")
	cmd.Flags().StringVar(&f.evaluation, "evaluation", "", "evaluation name, created when absent")
	cmd.Flags().StringVar(&f.estimation, "estimation", "", "story points; blank clears")
	cmd.Flags().StringVar(&f.team, "team", "", "owning team")
	cmd.Flags().StringVar(&f.sprint, "sprint", "", "sprint label")
	cmd.Flags().StringVar(&f.image, "image", "", "path of an image file to attach")
	cmd.Flags().StringVar(&f.deps, "deps", "", "comma-separated dependency ids; replaces the set, empty clears")
	cmd.Flags().StringVar(&f.subs, "subs", "", "comma-separated sub-backlog ids; replaces the set, empty clears")
}

// apply copies every flag set on cmd into b and returns the links to
// replace.
func (f *backlogFields) apply(cmd *cobra.Command, b *types.Backlog) (*types.BacklogLinks, error) {
	set := func(name string, dst *string, v string) {
		if changed(cmd, name) {
			*dst = v
		}
	}
	set("task", &b.Task, f.task)
	set("details", &b.TaskDetails, f.details)
	set("lob", &b.LOB, f.lob)
	set("theme", &b.Theme, f.theme)
	set("evaluation", &b.Evaluation, f.evaluation)
	set("team", &b.Team, f.team)
	set("sprint", &b.Sprint, f.sprint)
	if changed(cmd, "estimation") {
		est, err := types.ParseEstimation(f.estimation)
		if err != nil {
			return nil, fmt.Errorf("estimation %q: %w", f.estimation, err)
		}
		b.Estimation = est
	}
	if changed(cmd, "image") {
		data, err := os.ReadFile(f.image)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		b.Image = data
	}

	var links *types.BacklogLinks
	if changed(cmd, "deps") || changed(cmd, "subs") {
		links = &types.BacklogLinks{}
		var err error
		if changed(cmd, "deps") {
			if links.DependencyIDs, err = idList(f.deps); err != nil {
				return nil, err
			}
		}
		if changed(cmd, "subs") {
			if links.SubBacklogIDs, err = idList(f.subs); err != nil {
				return nil, err
			}
		}
	}
	return links, nil
}

func newBacklogAddCmd() *cobra.Command {
	var f backlogFields
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a backlog",
		Example: `  backlog backlog add --task "Checkout flow" --theme Payments --estimation 8
  backlog backlog add --task "Refunds" --theme Payments --deps 3,4 --sprint "Sprint 2"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := &types.Backlog{}
			links, err := f.apply(cmd, b)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				id, err := s.store.Backlogs().Set(ctx, b, links)
				if err != nil {
					return err
				}
				created, err := s.store.Backlogs().Get(ctx, id)
				if err != nil {
					return err
				}
				return done(cmd, created, "created backlog %d", id)
			})
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("theme")
	return cmd
}

func newBacklogListCmd() *cobra.Command {
	keys := []string{"search", "task", "task_details", "lob", "theme", "evaluation", "team", "sprint"}
	values := make(map[string]*string, len(keys))
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backlogs",
		Long: `List backlogs with their dependency counts.

Filters combine with AND. task, task_details, and lob match substrings;
theme, evaluation, team, and sprint match exactly; search matches a
substring of task, details, LOB, theme, or evaluation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := types.Filter{}
			for _, k := range keys {
				if v := *values[k]; v != "" {
					filter[k] = v
				}
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.store.Backlogs().Fetch(ctx, filter)
				if err != nil {
					return err
				}
				return emit(cmd, rows, func() render.Table { return backlogTable(rows) })
			})
		},
	}
	for _, k := range keys {
		values[k] = cmd.Flags().String(strings.ReplaceAll(k, "_", "-"), "", "filter by "+strings.ReplaceAll(k, "_", " "))
	}
	return cmd
}

type backlogDetail struct {
	*types.Backlog
	Dependencies []*types.Dependency `json:"dependencies"`
	SubBacklogs  []int64             `json:"sub_backlog_ids"`
}

func newBacklogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a backlog with its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				b, err := s.store.Backlogs().Get(ctx, id)
				if err != nil {
					return err
				}
				deps, err := s.store.Dependencies().ForBacklog(ctx, id)
				if err != nil {
					return err
				}
				subs, err := s.store.Associations().List(ctx, types.RelBacklogSubBacklogs, id)
				if err != nil {
					return err
				}
				detail := backlogDetail{Backlog: b, Dependencies: deps, SubBacklogs: subs}
				if flags.jsonMode {
					return printer(cmd).JSON(detail)
				}
				p := printer(cmd)
				if err := p.Table(backlogTable([]*types.Backlog{b})); err != nil {
					return err
				}
				if b.TaskDetails != "" {
					if err := p.Line("details: %s", b.TaskDetails); err != nil {
						return err
					}
				}
				if b.LOB != "" {
					if err := p.Line("lob: %s", b.LOB); err != nil {
						return err
					}
				}
				if len(deps) == 0 {
					return nil
				}
				return p.Table(dependencyTable(deps))
			})
		},
	}
}

func newBacklogUpdateCmd() *cobra.Command {
	var (
		f          backlogFields
		clearImage bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a backlog",
		Long:  "Update changes only the fields whose flags are given.",
		Example: `  backlog backlog update 7 --estimation 5 --sprint "Sprint 3"
  backlog backlog update 7 --deps ""      # clear dependencies`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if clearImage && changed(cmd, "image") {
				return usagef("--image and --clear-image are mutually exclusive")
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				b, err := s.store.Backlogs().Get(ctx, id)
				if err != nil {
					return err
				}
				links, err := f.apply(cmd, b)
				if err != nil {
					return err
				}
				if clearImage {
					b.Image = []byte{}
				}
				if _, err := s.store.Backlogs().Set(ctx, b, links); err != nil {
					return err
				}
				updated, err := s.store.Backlogs().Get(ctx, id)
				if err != nil {
					return err
				}
				return done(cmd, updated, "updated backlog %d", id)
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&clearImage, "clear-image", false, "remove the attached image")
	return cmd
}

func newBacklogDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete backlogs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Backlogs().Delete(ctx, ids...); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"deleted": ids}, "deleted %d backlogs", len(ids))
			})
		},
	}
}

// parsePart reads "task:points" or "task:points:details". The task may not
// contain a colon.
func parsePart(spec string) (types.SplitPart, error) {
	fields := strings.SplitN(spec, ":", 3)
	if len(fields) < 2 {
		return types.SplitPart{}, usagef("invalid part %q (expected task:points[:details])", spec)
	}
	est, err := types.ParseEstimation(fields[1])
	if err != nil || est == nil {
		return types.SplitPart{}, usagef("invalid points in part %q", spec)
	}
	part := types.SplitPart{Task: fields[0], Estimation: *est}
	if len(fields) == 3 {
		part.TaskDetails = fields[2]
	}
	return part, nil
}

func newBacklogSplitCmd() *cobra.Command {
	var specs []string
	cmd := &cobra.Command{
		Use:   "split <id>",
		Short: "Split a backlog into parts",
		Long: `Split replaces a backlog with two or more parts whose points sum to the
original estimation. Parts inherit theme, evaluation, team, sprint, LOB,
image, and dependencies.`,
		Example: `  backlog backlog split 7 --part "Cart:5" --part "Payment page:3:card form only"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			parts := make([]types.SplitPart, 0, len(specs))
			for _, spec := range specs {
				part, err := parsePart(spec)
				if err != nil {
					return err
				}
				parts = append(parts, part)
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				children, err := s.store.Backlogs().Split(ctx, id, parts)
				if err != nil {
					return err
				}
				return done(cmd, map[string]any{"split": id, "created": children},
					"split backlog %d into %s", id, joinIDs(children))
			})
		},
	}
	cmd.Flags().StringArrayVar(&specs, "part", nil, "part as task:points[:details], repeatable")
	_ = cmd.MarkFlagRequired("part")
	return cmd
}

func newBacklogMergeCmd() *cobra.Command {
	var (
		into int64
		f    backlogFields
	)
	cmd := &cobra.Command{
		Use:   "merge <id>...",
		Short: "Merge backlogs into one",
		Long: `Merge folds the listed backlogs into the one named by --into. The survivor
gains the union of their dependencies and, unless --estimation is given, the
sum of their estimations. Field flags replace the survivor's values.`,
		Example: `  backlog backlog merge 4 5 6 --into 4
  backlog backlog merge 4 5 --into 5 --task "Checkout" --estimation 8`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				req := types.MergeRequest{SurvivorID: into, IDs: ids}
				if overridesGiven(cmd) {
					survivor, err := s.store.Backlogs().Get(ctx, into)
					if err != nil {
						return err
					}
					if !changed(cmd, "estimation") {
						survivor.Estimation = nil
					}
					if _, err := f.apply(cmd, survivor); err != nil {
						return err
					}
					survivor.Image = nil
					req.Overrides = survivor
				}
				if err := s.store.Backlogs().Merge(ctx, req); err != nil {
					return err
				}
				merged, err := s.store.Backlogs().Get(ctx, into)
				if err != nil {
					return err
				}
				return done(cmd, merged, "merged %d backlogs into %d", len(ids), into)
			})
		},
	}
	cmd.Flags().Int64Var(&into, "into", 0, "id of the surviving backlog (required)")
	_ = cmd.MarkFlagRequired("into")
	cmd.Flags().StringVar(&f.task, "task", "", "survivor task")
	cmd.Flags().StringVar(&f.details, "details", "", "survivor details")
	cmd.Flags().StringVar(&f.lob, "lob", "", "survivor line of business")
	cmd.Flags().StringVar(&f.theme, "theme", "", "survivor theme")
	cmd.Flags().StringVar(&f.evaluation, "evaluation", "", "survivor evaluation")
	cmd.Flags().StringVar(&f.estimation, "estimation", "", "survivor story points")
	cmd.Flags().StringVar(&f.team, "team", "", "survivor team")
	cmd.Flags().StringVar(&f.sprint, "sprint", "", "survivor sprint")
	return cmd
}

func overridesGiven(cmd *cobra.Command) bool {
	for _, name := range []string{"task", "details", "lob", "theme", "evaluation", "estimation", "team", "sprint"} {
		if changed(cmd, name) {
			return true
		}
	}
	return false
}

func newBacklogAssignDepsCmd() *cobra.Command {
	var depList string
	cmd := &cobra.Command{
		Use:   "assign-deps <id>...",
		Short: "Replace the dependencies of backlogs",
		Example: `  backlog backlog assign-deps 4 5 --deps 2,3
  backlog backlog assign-deps 4 --deps ""     # clear`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			deps, err := idList(depList)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Backlogs().AssignDependencies(ctx, ids, deps); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"backlog_ids": ids, "dependency_ids": deps},
					"assigned %d dependencies to %d backlogs", len(deps), len(ids))
			})
		},
	}
	cmd.Flags().StringVar(&depList, "deps", "", "comma-separated dependency ids (required, empty clears)")
	_ = cmd.MarkFlagRequired("deps")
	return cmd
}

func newBacklogAssignSubsCmd() *cobra.Command {
	var subList string
	cmd := &cobra.Command{
		Use:   "assign-subs <id>...",
		Short: "Replace the sub-backlogs of backlogs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			subs, err := idList(subList)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Backlogs().AssignSubBacklogs(ctx, ids, subs); err != nil {
					return err
				}
				return done(cmd, map[string][]int64{"backlog_ids": ids, "sub_backlog_ids": subs},
					"assigned %d sub-backlogs to %d backlogs", len(subs), len(ids))
			})
		},
	}
	cmd.Flags().StringVar(&subList, "subs", "", "comma-separated sub-backlog ids (required, empty clears)")
	_ = cmd.MarkFlagRequired("subs")
	return cmd
}

func newBacklogSetEvaluationCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "set-evaluation <id>...",
		Short: "Set the evaluation of backlogs",
		Long:  "Set the evaluation of every listed backlog. An empty --name clears it.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if err := s.store.Backlogs().SetEvaluation(ctx, ids, name); err != nil {
					return err
				}
				return done(cmd, map[string]any{"backlog_ids": ids, "evaluation": name},
					"set evaluation of %d backlogs to %q", len(ids), name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "evaluation name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBacklogImageCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "image <id>",
		Short: "Write a backlog's image to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *session) error {
				data, err := s.store.Backlogs().Image(ctx, id)
				if err != nil {
					return err
				}
				if len(data) == 0 {
					return fmt.Errorf("backlog %d has no image: %w", id, types.ErrNotFound)
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write image: %w", err)
				}
				return done(cmd, map[string]any{"id": id, "file": out, "bytes": len(data)},
					"wrote %d bytes to %s", len(data), out)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (required)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = formatID(id)
	}
	return strings.Join(parts, ", ")
}
