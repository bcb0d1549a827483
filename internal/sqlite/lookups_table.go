package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// ThemeTable reads and writes themes. Backlogs reference themes by id, so a
// rename is visible on every backlog at once and a delete leaves the
// backlogs without a theme.
type ThemeTable struct {
	backend *Backend
}

const themeSelect = `
	SELECT t.id, t.name, COUNT(b.id)
	FROM theme t
	LEFT JOIN backlog b ON b.theme_id = t.id`

func hydrateTheme(row scanner) (*types.Theme, error) {
	var t types.Theme
	if err := row.Scan(&t.ID, &t.Name, &t.BacklogCount); err != nil {
		return nil, err
	}
	return &t, nil
}

// Get returns the theme with id and its backlog count.
func (tt *ThemeTable) Get(ctx context.Context, id int64) (*types.Theme, error) {
	return tt.getWhere(ctx, "t.id = ?", id)
}

// GetByName returns the theme called name.
func (tt *ThemeTable) GetByName(ctx context.Context, name string) (*types.Theme, error) {
	return tt.getWhere(ctx, "t.name = ?", strings.TrimSpace(name))
}

func (tt *ThemeTable) getWhere(ctx context.Context, cond string, arg any) (*types.Theme, error) {
	var t *types.Theme
	err := tt.backend.read(func(db *sql.DB) error {
		var err error
		t, err = hydrateTheme(db.QueryRowContext(ctx, themeSelect+" WHERE "+cond+" GROUP BY t.id, t.name", arg))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("theme %v: %w", arg, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting theme %v: %w", arg, err)
		}
		return nil
	})
	return t, err
}

// Fetch lists every theme by name with the number of backlogs using it.
func (tt *ThemeTable) Fetch(ctx context.Context) ([]*types.Theme, error) {
	var results []*types.Theme
	err := tt.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateTheme, themeSelect+" GROUP BY t.id, t.name ORDER BY t.name")
		if err != nil {
			return fmt.Errorf("fetching themes: %w", err)
		}
		return nil
	})
	return results, err
}

// Create adds a theme. A taken name returns types.ErrDuplicateName.
func (tt *ThemeTable) Create(ctx context.Context, name string) (int64, error) {
	return createLookup(ctx, tt.backend, "theme", name, nil)
}

// Ensure returns the id of the theme called name, creating it if absent.
func (tt *ThemeTable) Ensure(ctx context.Context, name string) (int64, error) {
	return ensureLookupTx(ctx, tt.backend, "theme", name)
}

// Rename changes the name of theme oldName to newName. A taken newName
// returns types.ErrDuplicateName and changes nothing.
func (tt *ThemeTable) Rename(ctx context.Context, oldName, newName string) error {
	return renameLookup(ctx, tt.backend, "theme", oldName, newName)
}

// Delete removes the themes with ids. Backlogs that used them are left
// without a theme and note links to them are dropped.
func (tt *ThemeTable) Delete(ctx context.Context, ids ...int64) error {
	return deleteLookups(ctx, tt.backend, "theme", "theme_id", "meeting_note_theme", ids)
}

// EvaluationTable reads and writes evaluations.
type EvaluationTable struct {
	backend *Backend
}

const evaluationSelect = "SELECT id, name, COALESCE(note, '') FROM evaluation"

func hydrateEvaluation(row scanner) (*types.Evaluation, error) {
	var e types.Evaluation
	if err := row.Scan(&e.ID, &e.Name, &e.Note); err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns the evaluation with id.
func (et *EvaluationTable) Get(ctx context.Context, id int64) (*types.Evaluation, error) {
	return et.getWhere(ctx, "id = ?", id)
}

// GetByName returns the evaluation called name.
func (et *EvaluationTable) GetByName(ctx context.Context, name string) (*types.Evaluation, error) {
	return et.getWhere(ctx, "name = ?", strings.TrimSpace(name))
}

func (et *EvaluationTable) getWhere(ctx context.Context, cond string, arg any) (*types.Evaluation, error) {
	var e *types.Evaluation
	err := et.backend.read(func(db *sql.DB) error {
		var err error
		e, err = hydrateEvaluation(db.QueryRowContext(ctx, evaluationSelect+" WHERE "+cond, arg))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("evaluation %v: %w", arg, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting evaluation %v: %w", arg, err)
		}
		return nil
	})
	return e, err
}

// Fetch lists every evaluation by name.
func (et *EvaluationTable) Fetch(ctx context.Context) ([]*types.Evaluation, error) {
	var results []*types.Evaluation
	err := et.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateEvaluation, evaluationSelect+" ORDER BY name")
		if err != nil {
			return fmt.Errorf("fetching evaluations: %w", err)
		}
		return nil
	})
	return results, err
}

// Create adds an evaluation. A taken name returns types.ErrDuplicateName.
func (et *EvaluationTable) Create(ctx context.Context, e *types.Evaluation) (int64, error) {
	id, err := createLookup(ctx, et.backend, "evaluation", e.Name, &e.Note)
	if err != nil {
		return 0, err
	}
	e.ID = id
	e.Name = strings.TrimSpace(e.Name)
	return id, nil
}

// Ensure returns the id of the evaluation called name, creating it if absent.
func (et *EvaluationTable) Ensure(ctx context.Context, name string) (int64, error) {
	return ensureLookupTx(ctx, et.backend, "evaluation", name)
}

// Update rewrites the name and note of evaluation e.ID. A taken name returns
// types.ErrDuplicateName and changes nothing.
func (et *EvaluationTable) Update(ctx context.Context, e *types.Evaluation) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Note = strings.TrimSpace(e.Note)
	if e.Name == "" {
		return types.ErrInvalidName
	}
	return et.backend.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE evaluation SET name = ?, note = ? WHERE id = ?", e.Name, nullString(e.Note), e.ID)
		if err != nil {
			return fmt.Errorf("updating evaluation %d: %w", e.ID, mapConstraint(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("evaluation %d: %w", e.ID, types.ErrNotFound)
		}
		return nil
	})
}

// Rename changes the name of evaluation oldName to newName.
func (et *EvaluationTable) Rename(ctx context.Context, oldName, newName string) error {
	return renameLookup(ctx, et.backend, "evaluation", oldName, newName)
}

// Delete removes the evaluations with ids. Backlogs that used them are left
// without an evaluation and note links to them are dropped.
func (et *EvaluationTable) Delete(ctx context.Context, ids ...int64) error {
	return deleteLookups(ctx, et.backend, "evaluation", "evaluation_id", "meeting_note_evaluation", ids)
}

func createLookup(ctx context.Context, b *Backend, table, name string, note *string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, types.ErrInvalidName
	}
	var id int64
	err := b.write(ctx, func(tx *sql.Tx) error {
		query := "INSERT INTO " + table + " (name) VALUES (?)"
		args := []any{name}
		if note != nil {
			query = "INSERT INTO " + table + " (name, note) VALUES (?, ?)"
			args = append(args, nullString(strings.TrimSpace(*note)))
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("creating %s %q: %w", table, name, mapConstraint(err))
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func ensureLookupTx(ctx context.Context, b *Backend, table, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, types.ErrInvalidName
	}
	var id int64
	err := b.write(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = ensureLookup(ctx, tx, table, name)
		return err
	})
	return id, err
}

func renameLookup(ctx context.Context, b *Backend, table, oldName, newName string) error {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return types.ErrInvalidName
	}
	return b.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET name = ? WHERE name = ?", newName, oldName)
		if err != nil {
			return fmt.Errorf("renaming %s %q to %q: %w", table, oldName, newName, mapConstraint(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s %q: %w", table, oldName, types.ErrNotFound)
		}
		return nil
	})
}

func deleteLookups(ctx context.Context, b *Backend, table, backlogColumn, noteTable string, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	in := placeholders(len(ids))
	args := idArgs(ids)
	return b.write(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			fmt.Sprintf("UPDATE backlog SET %s = NULL WHERE %s IN (%s)", backlogColumn, backlogColumn, in),
			fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", noteTable, backlogColumn, in),
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("detaching %s: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, in), args...)
		if err != nil {
			return fmt.Errorf("deleting %s: %w", table, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s %v: %w", table, ids, types.ErrNotFound)
		}
		return nil
	})
}
