package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// BacklogTable reads and writes backlogs.
type BacklogTable struct {
	backend *Backend
}

const backlogColumns = `
	b.id,
	b.task,
	COALESCE(b.task_details, ''),
	COALESCE(b.lob, ''),
	b.image_blob IS NOT NULL,
	COALESCE(b.theme_id, 0),
	COALESCE(t.name, ''),
	COALESCE(b.evaluation_id, 0),
	COALESCE(e.name, ''),
	b.estimation,
	COALESCE(b.team, ''),
	COALESCE(b.sprint, ''),
	(SELECT COUNT(*) FROM backlog_dependency bd WHERE bd.backlog_id = b.id)`

const backlogFrom = `
	FROM backlog b
	LEFT JOIN theme t ON t.id = b.theme_id
	LEFT JOIN evaluation e ON e.id = b.evaluation_id`

// backlogFilterColumns maps filter keys to the columns they match. Substring
// keys match case-insensitively; the rest match exactly.
var backlogFilterColumns = map[string]struct {
	expr      string
	substring bool
}{
	"task":         {"b.task", true},
	"task_details": {"b.task_details", true},
	"lob":          {"b.lob", true},
	"theme":        {"t.name", false},
	"evaluation":   {"e.name", false},
	"team":         {"b.team", false},
	"sprint":       {"b.sprint", false},
}

// searchColumns are matched by the "search" filter key.
var searchColumns = []string{"b.task", "b.task_details", "b.lob", "t.name", "e.name"}

type scanner interface {
	Scan(dest ...any) error
}

func hydrateBacklog(row scanner) (*types.Backlog, error) {
	var (
		b          types.Backlog
		estimation sql.NullInt64
	)
	if err := row.Scan(
		&b.ID, &b.Task, &b.TaskDetails, &b.LOB, &b.HasImage,
		&b.ThemeID, &b.Theme, &b.EvaluationID, &b.Evaluation,
		&estimation, &b.Team, &b.Sprint, &b.DependencyCount,
	); err != nil {
		return nil, err
	}
	b.Estimation = int64Ptr(estimation)
	return &b, nil
}

// Get returns the backlog with id, image included.
func (bt *BacklogTable) Get(ctx context.Context, id int64) (*types.Backlog, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var b *types.Backlog
	err := bt.backend.read(func(db *sql.DB) error {
		var err error
		b, err = getBacklog(ctx, db, id)
		return err
	})
	return b, err
}

func getBacklog(ctx context.Context, q execer, id int64) (*types.Backlog, error) {
	b, err := hydrateBacklog(q.QueryRowContext(ctx,
		"SELECT "+backlogColumns+backlogFrom+" WHERE b.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("backlog %d: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("getting backlog %d: %w", id, err)
	}
	if b.HasImage {
		if err := q.QueryRowContext(ctx,
			"SELECT image_blob FROM backlog WHERE id = ?", id,
		).Scan(&b.Image); err != nil {
			return nil, fmt.Errorf("getting backlog %d image: %w", id, err)
		}
	}
	return b, nil
}

// Image returns the image stored on a backlog, or nil when it has none.
func (bt *BacklogTable) Image(ctx context.Context, id int64) ([]byte, error) {
	b, err := bt.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.Image, nil
}

// Fetch lists backlogs ordered by id. Listings leave Image empty and set
// HasImage. Filter keys: task, task_details, lob (substring); theme,
// evaluation, team, sprint (exact); search (substring over task, details,
// LOB, theme, and evaluation).
func (bt *BacklogTable) Fetch(ctx context.Context, filter types.Filter) ([]*types.Backlog, error) {
	var (
		conditions []string
		args       []any
	)
	for key, col := range backlogFilterColumns {
		v, ok, err := filter.String(key)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", key, err)
		}
		if !ok || v == "" {
			continue
		}
		if col.substring {
			conditions = append(conditions, "instr(lower(COALESCE("+col.expr+", '')), lower(?)) > 0")
		} else {
			conditions = append(conditions, col.expr+" = ?")
		}
		args = append(args, v)
	}
	if term, ok, err := filter.String("search"); err != nil {
		return nil, fmt.Errorf("filter search: %w", err)
	} else if ok && term != "" {
		var matches []string
		for _, c := range searchColumns {
			matches = append(matches, "instr(lower(COALESCE("+c+", '')), lower(?)) > 0")
			args = append(args, term)
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	query := "SELECT " + backlogColumns + backlogFrom
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.id"

	var results []*types.Backlog
	err := bt.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateBacklog, query, args...)
		if err != nil {
			return fmt.Errorf("fetching backlogs: %w", err)
		}
		return nil
	})
	return results, err
}

// Set creates b when b.ID is zero and updates it otherwise, returning the id.
// Theme and Evaluation are resolved by name, creating lookup rows that do not
// exist yet; an empty Evaluation clears it. On update a nil Image keeps the
// stored image and an empty non-nil Image removes it. links, when non-nil,
// replaces the named associations in the same transaction.
func (bt *BacklogTable) Set(ctx context.Context, b *types.Backlog, links *types.BacklogLinks) (int64, error) {
	b.Normalize()
	if err := b.Validate(); err != nil {
		return 0, err
	}

	err := bt.backend.write(ctx, func(tx *sql.Tx) error {
		if err := saveBacklog(ctx, tx, b); err != nil {
			return err
		}
		return saveBacklogLinks(ctx, tx, b.ID, links)
	})
	if err != nil {
		return 0, err
	}
	return b.ID, nil
}

// saveBacklog inserts or updates b and fills its ID and lookup ids. It does
// not validate: rows whose theme was deleted carry an empty Theme and keep it.
func saveBacklog(ctx context.Context, tx execer, b *types.Backlog) error {
	var (
		themeID, evaluationID int64
		err                   error
	)
	if b.Theme != "" {
		if themeID, err = ensureLookup(ctx, tx, "theme", b.Theme); err != nil {
			return err
		}
	}
	if b.Evaluation != "" {
		if evaluationID, err = ensureLookup(ctx, tx, "evaluation", b.Evaluation); err != nil {
			return err
		}
	}

	if b.ID == 0 {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO backlog (task, task_details, lob, image_blob, theme_id, evaluation_id, estimation, team, sprint)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.Task, nullString(b.TaskDetails), nullString(b.LOB), imageArg(b.Image),
			nullID(themeID), nullID(evaluationID), nullInt64(b.Estimation), nullString(b.Team), nullString(b.Sprint),
		)
		if err != nil {
			return fmt.Errorf("inserting backlog: %w", mapConstraint(err))
		}
		if b.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading backlog id: %w", err)
		}
		b.HasImage = len(b.Image) > 0
	} else {
		query := `UPDATE backlog SET task = ?, task_details = ?, lob = ?, theme_id = ?, evaluation_id = ?,
			estimation = ?, team = ?, sprint = ?`
		args := []any{
			b.Task, nullString(b.TaskDetails), nullString(b.LOB), nullID(themeID), nullID(evaluationID),
			nullInt64(b.Estimation), nullString(b.Team), nullString(b.Sprint),
		}
		if b.Image != nil {
			query += ", image_blob = ?"
			args = append(args, imageArg(b.Image))
			b.HasImage = len(b.Image) > 0
		}
		query += " WHERE id = ?"
		args = append(args, b.ID)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("updating backlog %d: %w", b.ID, mapConstraint(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("backlog %d: %w", b.ID, types.ErrNotFound)
		}
	}

	b.ThemeID = themeID
	b.EvaluationID = evaluationID
	return nil
}

func saveBacklogLinks(ctx context.Context, tx execer, id int64, links *types.BacklogLinks) error {
	if links == nil {
		return nil
	}
	if links.DependencyIDs != nil {
		if err := replaceLinks(ctx, tx, relations[types.RelBacklogDependencies], id, links.DependencyIDs); err != nil {
			return err
		}
	}
	if links.SubBacklogIDs != nil {
		if err := replaceLinks(ctx, tx, relations[types.RelBacklogSubBacklogs], id, links.SubBacklogIDs); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the backlogs with ids and every association row naming
// them. It returns types.ErrNotFound when none of the ids exist.
func (bt *BacklogTable) Delete(ctx context.Context, ids ...int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	return bt.backend.write(ctx, func(tx *sql.Tx) error {
		n, err := deleteBacklogs(ctx, tx, ids)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("backlogs %v: %w", ids, types.ErrNotFound)
		}
		return nil
	})
}

// backlogJoinTables hold a backlog_id column.
var backlogJoinTables = []string{"backlog_dependency", "sub_backlog_backlog", "meeting_note_backlog"}

func deleteBacklogs(ctx context.Context, tx execer, ids []int64) (int64, error) {
	in := placeholders(len(ids))
	args := idArgs(ids)
	for _, table := range backlogJoinTables {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE backlog_id IN (%s)", table, in), args...,
		); err != nil {
			return 0, fmt.Errorf("deleting %s rows: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM backlog WHERE id IN ("+in+")", args...)
	if err != nil {
		return 0, fmt.Errorf("deleting backlogs: %w", err)
	}
	return res.RowsAffected()
}

// ensureLookup returns the id of the named theme or evaluation, inserting it
// when absent.
func ensureLookup(ctx context.Context, tx execer, table, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO "+table+" (name) VALUES (?)", name,
	); err != nil {
		return 0, fmt.Errorf("ensuring %s %q: %w", table, name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM "+table+" WHERE name = ?", name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving %s %q: %w", table, name, err)
	}
	return id, nil
}

// imageArg stores an empty image as NULL.
func imageArg(img []byte) any {
	if len(img) == 0 {
		return nil
	}
	return img
}
