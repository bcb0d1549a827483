package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backlog/internal/render"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Planning reports",
	}
	cmd.AddCommand(
		newSprintTeamReportCmd(),
		newBacklogDepsReportCmd(),
		newBacklogSubsReportCmd(),
		newBacklogSubsDepsReportCmd(),
	)
	return cmd
}

func newSprintTeamReportCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "sprint-team",
		Short: "Story points per sprint and team",
		Long: `Sum backlog estimations per sprint and team. The default view is a
matrix with sprints as rows and teams as columns; --long lists one row per
sprint and team pair.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				if long {
					cells, err := s.store.Reports().SprintTeam(ctx)
					if err != nil {
						return err
					}
					return emit(cmd, cells, func() render.Table {
						t := render.Table{Headers: []string{"sprint", "team", "points"}}
						for _, c := range cells {
							t.Rows = append(t.Rows, []string{c.Sprint, c.Team, strconv.FormatInt(c.Points, 10)})
						}
						return t
					})
				}
				pivot, err := s.store.Reports().SprintTeamPivot(ctx)
				if err != nil {
					return err
				}
				return emit(cmd, pivot, func() render.Table { return pivotTable(pivot) })
			})
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "one row per sprint and team")
	return cmd
}

// pivotTable adds a total column and a total row to the matrix.
func pivotTable(p types.SprintTeamPivot) render.Table {
	t := render.Table{Headers: append(append([]string{"sprint"}, p.Teams...), "total")}
	colTotals := make([]int64, len(p.Teams))
	var grand int64
	for i, sprint := range p.Sprints {
		row := []string{sprint}
		var rowTotal int64
		for j, pts := range p.Points[i] {
			row = append(row, strconv.FormatInt(pts, 10))
			rowTotal += pts
			colTotals[j] += pts
		}
		grand += rowTotal
		t.Rows = append(t.Rows, append(row, strconv.FormatInt(rowTotal, 10)))
	}
	if len(p.Sprints) == 0 {
		return t
	}
	totals := []string{"total"}
	for _, c := range colTotals {
		totals = append(totals, strconv.FormatInt(c, 10))
	}
	t.Rows = append(t.Rows, append(totals, strconv.FormatInt(grand, 10)))
	return t
}

func backlogCells(r types.ReportBacklog) []string {
	return []string{formatID(r.BacklogID), r.BacklogTask, r.BacklogTheme, r.BacklogTeam, r.BacklogSprint}
}

func dependencyCells(r types.ReportDependency) []string {
	return []string{formatOptional(r.DependencyID), r.DependencyTask, r.DependencySubTask, r.DependencyTeam}
}

func subBacklogCells(r types.ReportSubBacklog) []string {
	return []string{formatOptional(r.SubBacklogID), r.SubBacklogTitle}
}

var (
	backlogHeaders    = []string{"backlog", "task", "theme", "team", "sprint"}
	dependencyHeaders = []string{"dependency", "dep_task", "dep_sub_task", "dep_team"}
	subBacklogHeaders = []string{"sub_backlog", "sub_title"}
)

func headers(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func newBacklogDepsReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backlog-deps",
		Short: "Every backlog with each of its dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.store.Reports().BacklogDependencies(ctx)
				if err != nil {
					return err
				}
				return emit(cmd, rows, func() render.Table {
					t := render.Table{Headers: headers(backlogHeaders, dependencyHeaders)}
					for _, r := range rows {
						t.Rows = append(t.Rows, append(backlogCells(r.ReportBacklog), dependencyCells(r.ReportDependency)...))
					}
					return t
				})
			})
		},
	}
}

func newBacklogSubsReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backlog-subs",
		Short: "Every backlog with each sub-backlog grouping it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.store.Reports().BacklogSubBacklogs(ctx)
				if err != nil {
					return err
				}
				return emit(cmd, rows, func() render.Table {
					t := render.Table{Headers: headers(backlogHeaders, subBacklogHeaders)}
					for _, r := range rows {
						t.Rows = append(t.Rows, append(backlogCells(r.ReportBacklog), subBacklogCells(r.ReportSubBacklog)...))
					}
					return t
				})
			})
		},
	}
}

func newBacklogSubsDepsReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backlog-subs-deps",
		Short: "Backlogs joined with their sub-backlogs and dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.store.Reports().BacklogSubBacklogDependencies(ctx)
				if err != nil {
					return err
				}
				return emit(cmd, rows, func() render.Table {
					t := render.Table{Headers: headers(backlogHeaders, subBacklogHeaders, dependencyHeaders)}
					for _, r := range rows {
						row := backlogCells(r.ReportBacklog)
						row = append(row, subBacklogCells(r.ReportSubBacklog)...)
						t.Rows = append(t.Rows, append(row, dependencyCells(r.ReportDependency)...))
					}
					return t
				})
			})
		},
	}
}
