package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// SubBacklogTable reads and writes sub-backlogs.
type SubBacklogTable struct {
	backend *Backend
}

// subBacklogSelect collects the member tasks as a JSON array so titles keep
// any separator characters they contain.
const subBacklogSelect = `
	SELECT s.id, s.title, COALESCE(s.note, ''),
		json_group_array(b.task) FILTER (WHERE b.id IS NOT NULL)
	FROM sub_backlog s
	LEFT JOIN sub_backlog_backlog link ON link.sub_backlog_id = s.id
	LEFT JOIN backlog b ON b.id = link.backlog_id`

func hydrateSubBacklog(row scanner) (*types.SubBacklog, error) {
	var (
		s     types.SubBacklog
		tasks string
	)
	if err := row.Scan(&s.ID, &s.Title, &s.Note, &tasks); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tasks), &s.BacklogTasks); err != nil {
		return nil, fmt.Errorf("decoding tasks of sub-backlog %d: %w", s.ID, err)
	}
	if len(s.BacklogTasks) == 0 {
		s.BacklogTasks = nil
	}
	return &s, nil
}

// Get returns the sub-backlog with id.
func (st *SubBacklogTable) Get(ctx context.Context, id int64) (*types.SubBacklog, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var s *types.SubBacklog
	err := st.backend.read(func(db *sql.DB) error {
		var err error
		s, err = hydrateSubBacklog(db.QueryRowContext(ctx,
			subBacklogSelect+" WHERE s.id = ? GROUP BY s.id", id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sub-backlog %d: %w", id, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting sub-backlog %d: %w", id, err)
		}
		return nil
	})
	return s, err
}

// Fetch lists sub-backlogs ordered by id. Filter keys: title (substring),
// backlog_id (linked to that backlog).
func (st *SubBacklogTable) Fetch(ctx context.Context, filter types.Filter) ([]*types.SubBacklog, error) {
	var (
		conditions []string
		args       []any
	)
	if title, ok, err := filter.String("title"); err != nil {
		return nil, fmt.Errorf("filter title: %w", err)
	} else if ok && title != "" {
		conditions = append(conditions, "instr(lower(s.title), lower(?)) > 0")
		args = append(args, title)
	}
	if id, ok, err := filter.ID("backlog_id"); err != nil {
		return nil, fmt.Errorf("filter backlog_id: %w", err)
	} else if ok {
		conditions = append(conditions,
			"s.id IN (SELECT sub_backlog_id FROM sub_backlog_backlog WHERE backlog_id = ?)")
		args = append(args, id)
	}

	query := subBacklogSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY s.id ORDER BY s.id"

	var results []*types.SubBacklog
	err := st.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateSubBacklog, query, args...)
		if err != nil {
			return fmt.Errorf("fetching sub-backlogs: %w", err)
		}
		return nil
	})
	return results, err
}

// Set creates s when s.ID is zero and updates it otherwise. backlogIDs, when
// non-nil, replaces the backlogs grouped under it.
func (st *SubBacklogTable) Set(ctx context.Context, s *types.SubBacklog, backlogIDs []int64) (int64, error) {
	s.Title = strings.TrimSpace(s.Title)
	s.Note = strings.TrimSpace(s.Note)
	if s.Title == "" {
		return 0, types.ErrInvalidTitle
	}

	err := st.backend.write(ctx, func(tx *sql.Tx) error {
		if s.ID == 0 {
			res, err := tx.ExecContext(ctx,
				"INSERT INTO sub_backlog (title, note) VALUES (?, ?)", s.Title, nullString(s.Note))
			if err != nil {
				return fmt.Errorf("inserting sub-backlog: %w", err)
			}
			if s.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("reading sub-backlog id: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx,
				"UPDATE sub_backlog SET title = ?, note = ? WHERE id = ?", s.Title, nullString(s.Note), s.ID)
			if err != nil {
				return fmt.Errorf("updating sub-backlog %d: %w", s.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("sub-backlog %d: %w", s.ID, types.ErrNotFound)
			}
		}
		if backlogIDs == nil {
			return nil
		}
		return replaceLinks(ctx, tx, relations[types.RelSubBacklogBacklogs], s.ID, backlogIDs)
	})
	if err != nil {
		return 0, err
	}
	return s.ID, nil
}

// Delete removes the sub-backlogs with ids. The grouped backlogs stay.
func (st *SubBacklogTable) Delete(ctx context.Context, ids ...int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	in := placeholders(len(ids))
	args := idArgs(ids)
	return st.backend.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM sub_backlog_backlog WHERE sub_backlog_id IN ("+in+")", args...,
		); err != nil {
			return fmt.Errorf("deleting sub_backlog_backlog rows: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM sub_backlog WHERE id IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("deleting sub-backlogs: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("sub-backlogs %v: %w", ids, types.ErrNotFound)
		}
		return nil
	})
}

// Backlogs lists the backlogs grouped under sub-backlog id.
func (st *SubBacklogTable) Backlogs(ctx context.Context, id int64) ([]*types.Backlog, error) {
	var results []*types.Backlog
	err := st.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateBacklog,
			"SELECT "+backlogColumns+backlogFrom+
				" JOIN sub_backlog_backlog link ON link.backlog_id = b.id WHERE link.sub_backlog_id = ? ORDER BY b.id",
			id)
		if err != nil {
			return fmt.Errorf("fetching backlogs of sub-backlog %d: %w", id, err)
		}
		return nil
	})
	return results, err
}
