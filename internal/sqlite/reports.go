package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// Reports runs the read-only join views over backlogs.
type Reports struct {
	backend *Backend
}

const reportBacklogColumns = `
	b.id, b.task, COALESCE(b.task_details, ''), COALESCE(t.name, ''), COALESCE(e.name, ''),
	COALESCE(b.team, ''), COALESCE(b.sprint, '')`

const reportSubBacklogColumns = `
	sb.id, COALESCE(sb.title, ''), COALESCE(sb.note, '')`

const reportDependencyColumns = `
	d.id, COALESCE(d.task, ''), COALESCE(d.sub_task, ''), COALESCE(d.team, '')`

const (
	joinSubBacklogs = `
	LEFT JOIN sub_backlog_backlog sbb ON sbb.backlog_id = b.id
	LEFT JOIN sub_backlog sb ON sb.id = sbb.sub_backlog_id`
	joinDependencies = `
	LEFT JOIN backlog_dependency bd ON bd.backlog_id = b.id
	LEFT JOIN dependency d ON d.id = bd.dependency_id`
)

func backlogDests(r *types.ReportBacklog) []any {
	return []any{
		&r.BacklogID, &r.BacklogTask, &r.BacklogTaskDetails, &r.BacklogTheme,
		&r.BacklogEvaluation, &r.BacklogTeam, &r.BacklogSprint,
	}
}

// subBacklogScan scans the sub-backlog columns; a backlog without a
// sub-backlog leaves SubBacklogID nil.
type subBacklogScan struct {
	id sql.NullInt64
}

func (s *subBacklogScan) dests(r *types.ReportSubBacklog) []any {
	return []any{&s.id, &r.SubBacklogTitle, &r.SubBacklogNote}
}

func (s *subBacklogScan) finish(r *types.ReportSubBacklog) {
	r.SubBacklogID = int64Ptr(s.id)
}

type dependencyScan struct {
	id sql.NullInt64
}

func (s *dependencyScan) dests(r *types.ReportDependency) []any {
	return []any{&s.id, &r.DependencyTask, &r.DependencySubTask, &r.DependencyTeam}
}

func (s *dependencyScan) finish(r *types.ReportDependency) {
	r.DependencyID = int64Ptr(s.id)
}

// BacklogDependencies returns one row per backlog-dependency pair and one
// row with empty dependency columns for each backlog without dependencies,
// ordered by backlog id then dependency id.
func (r *Reports) BacklogDependencies(ctx context.Context) ([]types.BacklogDependencyRow, error) {
	query := "SELECT" + reportBacklogColumns + "," + reportDependencyColumns +
		backlogFrom + joinDependencies + " ORDER BY b.id, d.id"

	return runReport(ctx, r.backend, "backlog dependencies", query, func(row scanner) (types.BacklogDependencyRow, error) {
		var (
			out types.BacklogDependencyRow
			dep dependencyScan
		)
		dests := append(backlogDests(&out.ReportBacklog), dep.dests(&out.ReportDependency)...)
		if err := row.Scan(dests...); err != nil {
			return out, err
		}
		dep.finish(&out.ReportDependency)
		return out, nil
	})
}

// BacklogSubBacklogs returns one row per backlog-sub-backlog pair, with
// empty sub-backlog columns for ungrouped backlogs.
func (r *Reports) BacklogSubBacklogs(ctx context.Context) ([]types.BacklogSubBacklogRow, error) {
	query := "SELECT" + reportBacklogColumns + "," + reportSubBacklogColumns +
		backlogFrom + joinSubBacklogs + " ORDER BY b.id, sb.id"

	return runReport(ctx, r.backend, "backlog sub-backlogs", query, func(row scanner) (types.BacklogSubBacklogRow, error) {
		var (
			out types.BacklogSubBacklogRow
			sub subBacklogScan
		)
		dests := append(backlogDests(&out.ReportBacklog), sub.dests(&out.ReportSubBacklog)...)
		if err := row.Scan(dests...); err != nil {
			return out, err
		}
		sub.finish(&out.ReportSubBacklog)
		return out, nil
	})
}

// BacklogSubBacklogDependencies returns the cross product of each backlog's
// sub-backlogs and dependencies, ordered by backlog, sub-backlog, and
// dependency id.
func (r *Reports) BacklogSubBacklogDependencies(ctx context.Context) ([]types.BacklogSubBacklogDependencyRow, error) {
	query := "SELECT" + reportBacklogColumns + "," + reportSubBacklogColumns + "," + reportDependencyColumns +
		backlogFrom + joinSubBacklogs + joinDependencies + " ORDER BY b.id, sb.id, d.id"

	return runReport(ctx, r.backend, "backlog sub-backlog dependencies", query, func(row scanner) (types.BacklogSubBacklogDependencyRow, error) {
		var (
			out types.BacklogSubBacklogDependencyRow
			sub subBacklogScan
			dep dependencyScan
		)
		dests := backlogDests(&out.ReportBacklog)
		dests = append(dests, sub.dests(&out.ReportSubBacklog)...)
		dests = append(dests, dep.dests(&out.ReportDependency)...)
		if err := row.Scan(dests...); err != nil {
			return out, err
		}
		sub.finish(&out.ReportSubBacklog)
		dep.finish(&out.ReportDependency)
		return out, nil
	})
}

// SprintTeam totals story points per sprint and team. Backlogs with a blank
// sprint or team are left out and a missing estimation counts as zero.
// Cells are ordered by sprint in natural order, then by team.
func (r *Reports) SprintTeam(ctx context.Context) ([]types.SprintTeamCell, error) {
	const query = `
		SELECT sprint, team, SUM(COALESCE(estimation, 0))
		FROM backlog
		WHERE TRIM(COALESCE(sprint, '')) != '' AND TRIM(COALESCE(team, '')) != ''
		GROUP BY sprint, team`

	cells, err := runReport(ctx, r.backend, "sprint team", query, func(row scanner) (types.SprintTeamCell, error) {
		var c types.SprintTeamCell
		err := row.Scan(&c.Sprint, &c.Team, &c.Points)
		return c, err
	})
	if err != nil {
		return nil, err
	}
	// Sprints sort naturally ("Sprint 2" before "Sprint 10"), not lexically.
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Sprint != cells[j].Sprint {
			return types.NaturalLess(cells[i].Sprint, cells[j].Sprint)
		}
		return cells[i].Team < cells[j].Team
	})
	return cells, nil
}

// SprintTeamPivot is SprintTeam laid out as a zero-filled matrix.
func (r *Reports) SprintTeamPivot(ctx context.Context) (types.SprintTeamPivot, error) {
	cells, err := r.SprintTeam(ctx)
	if err != nil {
		return types.SprintTeamPivot{}, err
	}
	return types.PivotSprintTeam(cells), nil
}

func runReport[T any](ctx context.Context, b *Backend, name, query string, hydrate func(scanner) (T, error)) ([]T, error) {
	var rows []T
	err := b.read(func(db *sql.DB) error {
		var err error
		rows, err = queryAll(ctx, db, hydrate, query)
		if err != nil {
			return fmt.Errorf("running %s report: %w", name, err)
		}
		return nil
	})
	return rows, err
}
