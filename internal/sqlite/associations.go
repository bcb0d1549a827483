package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// relation maps an association direction onto its join table.
type relation struct {
	table       string
	owner       string
	counterpart string
}

var relations = map[types.Relation]relation{
	types.RelBacklogDependencies: {"backlog_dependency", "backlog_id", "dependency_id"},
	types.RelDependencyBacklogs:  {"backlog_dependency", "dependency_id", "backlog_id"},
	types.RelBacklogSubBacklogs:  {"sub_backlog_backlog", "backlog_id", "sub_backlog_id"},
	types.RelSubBacklogBacklogs:  {"sub_backlog_backlog", "sub_backlog_id", "backlog_id"},
	types.RelNoteBacklogs:        {"meeting_note_backlog", "meeting_note_id", "backlog_id"},
	types.RelNoteDependencies:    {"meeting_note_dependency", "meeting_note_id", "dependency_id"},
	types.RelNoteThemes:          {"meeting_note_theme", "meeting_note_id", "theme_id"},
	types.RelNoteEvaluations:     {"meeting_note_evaluation", "meeting_note_id", "evaluation_id"},
}

func lookupRelation(rel types.Relation) (relation, error) {
	r, ok := relations[rel]
	if !ok {
		return relation{}, fmt.Errorf("%w: %s", types.ErrUnknownRelation, rel)
	}
	return r, nil
}

// AssociationManager edits many-to-many links by full replacement.
type AssociationManager struct {
	backend *Backend
}

// Replace makes counterpartIDs the complete set of counterparts linked to
// ownerID under rel. Duplicates collapse. The delete and the inserts run in
// one transaction; an unknown counterpart fails the whole call with
// types.ErrNotFound and leaves the previous set in place.
func (m *AssociationManager) Replace(ctx context.Context, rel types.Relation, ownerID int64, counterpartIDs []int64) error {
	r, err := lookupRelation(rel)
	if err != nil {
		return err
	}
	return m.backend.write(ctx, func(tx *sql.Tx) error {
		return replaceLinks(ctx, tx, r, ownerID, counterpartIDs)
	})
}

// List returns the counterparts linked to ownerID under rel, ascending.
func (m *AssociationManager) List(ctx context.Context, rel types.Relation, ownerID int64) ([]int64, error) {
	r, err := lookupRelation(rel)
	if err != nil {
		return nil, err
	}
	var ids []int64
	err = m.backend.read(func(db *sql.DB) error {
		ids, err = listLinks(ctx, db, r, ownerID)
		return err
	})
	return ids, err
}

// replaceLinks is Replace inside an open transaction.
func replaceLinks(ctx context.Context, tx execer, r relation, ownerID int64, counterpartIDs []int64) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.table, r.owner), ownerID,
	); err != nil {
		return fmt.Errorf("clearing %s for %d: %w", r.table, ownerID, err)
	}
	return addLinks(ctx, tx, r, ownerID, counterpartIDs)
}

// addLinks inserts links without clearing existing ones.
func addLinks(ctx context.Context, tx execer, r relation, ownerID int64, counterpartIDs []int64) error {
	insert := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)", r.table, r.owner, r.counterpart)
	for _, id := range counterpartIDs {
		if _, err := tx.ExecContext(ctx, insert, ownerID, id); err != nil {
			return fmt.Errorf("linking %s %d to %d: %w", r.table, ownerID, id, mapConstraint(err))
		}
	}
	return nil
}

func listLinks(ctx context.Context, q execer, r relation, ownerID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s", r.counterpart, r.table, r.owner, r.counterpart),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s for %d: %w", r.table, ownerID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", r.table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
