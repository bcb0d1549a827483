package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// DependencyTable reads and writes dependencies.
type DependencyTable struct {
	backend *Backend
}

const dependencySelect = "SELECT id, task, COALESCE(sub_task, ''), team FROM dependency"

func hydrateDependency(row scanner) (*types.Dependency, error) {
	var d types.Dependency
	if err := row.Scan(&d.ID, &d.Task, &d.SubTask, &d.Team); err != nil {
		return nil, err
	}
	return &d, nil
}

// Get returns the dependency with id.
func (dt *DependencyTable) Get(ctx context.Context, id int64) (*types.Dependency, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var d *types.Dependency
	err := dt.backend.read(func(db *sql.DB) error {
		var err error
		d, err = hydrateDependency(db.QueryRowContext(ctx, dependencySelect+" WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("dependency %d: %w", id, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting dependency %d: %w", id, err)
		}
		return nil
	})
	return d, err
}

// Fetch lists dependencies ordered by id. Filter keys: team (exact), task
// (substring), search (substring over task, sub task, and team).
func (dt *DependencyTable) Fetch(ctx context.Context, filter types.Filter) ([]*types.Dependency, error) {
	var (
		conditions []string
		args       []any
	)
	if team, ok, err := filter.String("team"); err != nil {
		return nil, fmt.Errorf("filter team: %w", err)
	} else if ok && team != "" {
		conditions = append(conditions, "team = ?")
		args = append(args, team)
	}
	if task, ok, err := filter.String("task"); err != nil {
		return nil, fmt.Errorf("filter task: %w", err)
	} else if ok && task != "" {
		conditions = append(conditions, "instr(lower(task), lower(?)) > 0")
		args = append(args, task)
	}
	if term, ok, err := filter.String("search"); err != nil {
		return nil, fmt.Errorf("filter search: %w", err)
	} else if ok && term != "" {
		conditions = append(conditions,
			"(instr(lower(task), lower(?)) > 0 OR instr(lower(COALESCE(sub_task, '')), lower(?)) > 0 OR instr(lower(team), lower(?)) > 0)")
		args = append(args, term, term, term)
	}

	query := dependencySelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	var results []*types.Dependency
	err := dt.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateDependency, query, args...)
		if err != nil {
			return fmt.Errorf("fetching dependencies: %w", err)
		}
		return nil
	})
	return results, err
}

// Set creates d when d.ID is zero and updates it otherwise. The team must be
// one of the configured dependency teams; matching ignores case. backlogIDs,
// when non-nil, replaces the backlogs linked to the dependency.
func (dt *DependencyTable) Set(ctx context.Context, d *types.Dependency, backlogIDs []int64) (int64, error) {
	if err := d.Validate(dt.backend.Config()); err != nil {
		return 0, err
	}

	err := dt.backend.write(ctx, func(tx *sql.Tx) error {
		if d.ID == 0 {
			res, err := tx.ExecContext(ctx,
				"INSERT INTO dependency (task, sub_task, team) VALUES (?, ?, ?)",
				d.Task, nullString(d.SubTask), d.Team,
			)
			if err != nil {
				return fmt.Errorf("inserting dependency: %w", err)
			}
			if d.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("reading dependency id: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx,
				"UPDATE dependency SET task = ?, sub_task = ?, team = ? WHERE id = ?",
				d.Task, nullString(d.SubTask), d.Team, d.ID,
			)
			if err != nil {
				return fmt.Errorf("updating dependency %d: %w", d.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("dependency %d: %w", d.ID, types.ErrNotFound)
			}
		}
		if backlogIDs == nil {
			return nil
		}
		return replaceLinks(ctx, tx, relations[types.RelDependencyBacklogs], d.ID, backlogIDs)
	})
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// Delete removes the dependencies with ids along with their backlog and
// note links.
func (dt *DependencyTable) Delete(ctx context.Context, ids ...int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	in := placeholders(len(ids))
	args := idArgs(ids)
	return dt.backend.write(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"backlog_dependency", "meeting_note_dependency"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE dependency_id IN (%s)", table, in), args...,
			); err != nil {
				return fmt.Errorf("deleting %s rows: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM dependency WHERE id IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("deleting dependencies: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("dependencies %v: %w", ids, types.ErrNotFound)
		}
		return nil
	})
}

// Backlogs lists the backlogs that rely on dependency id.
func (dt *DependencyTable) Backlogs(ctx context.Context, id int64) ([]*types.Backlog, error) {
	var results []*types.Backlog
	err := dt.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateBacklog,
			"SELECT "+backlogColumns+backlogFrom+
				" JOIN backlog_dependency link ON link.backlog_id = b.id WHERE link.dependency_id = ? ORDER BY b.id",
			id)
		if err != nil {
			return fmt.Errorf("fetching backlogs of dependency %d: %w", id, err)
		}
		return nil
	})
	return results, err
}

// ForBacklog lists the dependencies backlog id relies on.
func (dt *DependencyTable) ForBacklog(ctx context.Context, backlogID int64) ([]*types.Dependency, error) {
	var results []*types.Dependency
	err := dt.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateDependency, `
			SELECT d.id, d.task, COALESCE(d.sub_task, ''), d.team
			FROM dependency d
			JOIN backlog_dependency link ON link.dependency_id = d.id
			WHERE link.backlog_id = ?
			ORDER BY d.id`, backlogID)
		if err != nil {
			return fmt.Errorf("fetching dependencies of backlog %d: %w", backlogID, err)
		}
		return nil
	})
	return results, err
}
