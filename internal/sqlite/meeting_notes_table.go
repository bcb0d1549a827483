package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// MeetingNoteTable reads and writes meeting notes and their links.
type MeetingNoteTable struct {
	backend *Backend
}

const meetingNoteSelect = `
	SELECT n.id, n.meeting_id, COALESCE(n.meeting_date, ''), COALESCE(n.topic, ''),
		n.note_type, n.note, n.status
	FROM meeting_note n`

// meetingNoteOrder puts undated notes last, then newest date and id first.
const meetingNoteOrder = ` ORDER BY
	CASE WHEN n.meeting_date IS NULL OR n.meeting_date = '' THEN 1 ELSE 0 END,
	n.meeting_date DESC, n.id DESC`

// noteLinkFilters maps id filter keys to the join table holding the link.
var noteLinkFilters = []struct {
	key   string
	table string
	col   string
}{
	{"backlog_id", "meeting_note_backlog", "backlog_id"},
	{"dependency_id", "meeting_note_dependency", "dependency_id"},
	{"theme_id", "meeting_note_theme", "theme_id"},
	{"evaluation_id", "meeting_note_evaluation", "evaluation_id"},
}

func hydrateMeetingNote(row scanner) (*types.MeetingNote, error) {
	var (
		n         types.MeetingNote
		meetingID sql.NullInt64
	)
	if err := row.Scan(&n.ID, &meetingID, &n.MeetingDate, &n.Topic, &n.NoteType, &n.Note, &n.Status); err != nil {
		return nil, err
	}
	n.MeetingID = int64Ptr(meetingID)
	return &n, nil
}

// Get returns the meeting note with id.
func (nt *MeetingNoteTable) Get(ctx context.Context, id int64) (*types.MeetingNote, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var n *types.MeetingNote
	err := nt.backend.read(func(db *sql.DB) error {
		var err error
		n, err = hydrateMeetingNote(db.QueryRowContext(ctx, meetingNoteSelect+" WHERE n.id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("meeting note %d: %w", id, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting meeting note %d: %w", id, err)
		}
		return nil
	})
	return n, err
}

// Fetch lists meeting notes with undated notes last, then by meeting date and
// id, newest first.
//
// Filter keys:
//   - todo (bool): only to-dos; completed ones are hidden unless
//     include_completed is true
//   - status, note_type (exact)
//   - meeting_id, backlog_id, dependency_id, theme_id, evaluation_id: notes
//     linked to that entity
//   - sub_backlog_id: notes linked to any backlog of that sub-backlog
func (nt *MeetingNoteTable) Fetch(ctx context.Context, filter types.Filter) ([]*types.MeetingNote, error) {
	var (
		conditions []string
		args       []any
	)

	todo, _, err := filter.Bool("todo")
	if err != nil {
		return nil, fmt.Errorf("filter todo: %w", err)
	}
	includeCompleted, _, err := filter.Bool("include_completed")
	if err != nil {
		return nil, fmt.Errorf("filter include_completed: %w", err)
	}
	if todo {
		conditions = append(conditions, "n.note_type = ?")
		args = append(args, types.NoteTypeTodo)
		if !includeCompleted {
			conditions = append(conditions, "n.status != ?")
			args = append(args, types.NoteStatusCompleted)
		}
	}

	for _, key := range []string{"status", "note_type"} {
		v, ok, err := filter.String(key)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", key, err)
		}
		if ok && v != "" {
			conditions = append(conditions, "n."+key+" = ?")
			args = append(args, v)
		}
	}

	if id, ok, err := filter.ID("meeting_id"); err != nil {
		return nil, fmt.Errorf("filter meeting_id: %w", err)
	} else if ok {
		conditions = append(conditions, "n.meeting_id = ?")
		args = append(args, id)
	}

	for _, f := range noteLinkFilters {
		id, ok, err := filter.ID(f.key)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.key, err)
		}
		if !ok {
			continue
		}
		conditions = append(conditions,
			fmt.Sprintf("n.id IN (SELECT meeting_note_id FROM %s WHERE %s = ?)", f.table, f.col))
		args = append(args, id)
	}

	if id, ok, err := filter.ID("sub_backlog_id"); err != nil {
		return nil, fmt.Errorf("filter sub_backlog_id: %w", err)
	} else if ok {
		conditions = append(conditions, `n.id IN (
			SELECT DISTINCT mb.meeting_note_id
			FROM meeting_note_backlog mb
			JOIN sub_backlog_backlog sb ON sb.backlog_id = mb.backlog_id
			WHERE sb.sub_backlog_id = ?)`)
		args = append(args, id)
	}

	query := meetingNoteSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += meetingNoteOrder

	var results []*types.MeetingNote
	err = nt.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateMeetingNote, query, args...)
		if err != nil {
			return fmt.Errorf("fetching meeting notes: %w", err)
		}
		return nil
	})
	return results, err
}

// Set creates n when n.ID is zero and updates it otherwise. Each non-nil
// slice in links replaces that association in the same transaction. An
// unknown meeting or linked id fails with types.ErrNotFound.
func (nt *MeetingNoteTable) Set(ctx context.Context, n *types.MeetingNote, links *types.NoteLinks) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}

	err := nt.backend.write(ctx, func(tx *sql.Tx) error {
		if n.ID == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO meeting_note (meeting_id, meeting_date, topic, note_type, note, status)
				VALUES (?, ?, ?, ?, ?, ?)`,
				nullInt64(n.MeetingID), nullString(n.MeetingDate), nullString(n.Topic),
				n.NoteType, n.Note, n.Status,
			)
			if err != nil {
				return fmt.Errorf("inserting meeting note: %w", mapConstraint(err))
			}
			if n.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("reading meeting note id: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx, `
				UPDATE meeting_note
				SET meeting_id = ?, meeting_date = ?, topic = ?, note_type = ?, note = ?, status = ?
				WHERE id = ?`,
				nullInt64(n.MeetingID), nullString(n.MeetingDate), nullString(n.Topic),
				n.NoteType, n.Note, n.Status, n.ID,
			)
			if err != nil {
				return fmt.Errorf("updating meeting note %d: %w", n.ID, mapConstraint(err))
			}
			if rows, _ := res.RowsAffected(); rows == 0 {
				return fmt.Errorf("meeting note %d: %w", n.ID, types.ErrNotFound)
			}
		}
		return saveNoteLinks(ctx, tx, n.ID, links)
	})
	if err != nil {
		return 0, err
	}
	return n.ID, nil
}

func saveNoteLinks(ctx context.Context, tx execer, id int64, links *types.NoteLinks) error {
	if links == nil {
		return nil
	}
	for _, l := range []struct {
		rel types.Relation
		ids []int64
	}{
		{types.RelNoteBacklogs, links.BacklogIDs},
		{types.RelNoteDependencies, links.DependencyIDs},
		{types.RelNoteThemes, links.ThemeIDs},
		{types.RelNoteEvaluations, links.EvaluationIDs},
	} {
		if l.ids == nil {
			continue
		}
		if err := replaceLinks(ctx, tx, relations[l.rel], id, l.ids); err != nil {
			return err
		}
	}
	return nil
}

// Links returns every entity linked to note id.
func (nt *MeetingNoteTable) Links(ctx context.Context, id int64) (*types.NoteLinks, error) {
	links := &types.NoteLinks{}
	err := nt.backend.read(func(db *sql.DB) error {
		var err error
		for _, l := range []struct {
			rel types.Relation
			dst *[]int64
		}{
			{types.RelNoteBacklogs, &links.BacklogIDs},
			{types.RelNoteDependencies, &links.DependencyIDs},
			{types.RelNoteThemes, &links.ThemeIDs},
			{types.RelNoteEvaluations, &links.EvaluationIDs},
		} {
			if *l.dst, err = listLinks(ctx, db, relations[l.rel], id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// SetStatuses moves every note in statuses to its new status in one
// transaction. All statuses are checked before anything is written.
func (nt *MeetingNoteTable) SetStatuses(ctx context.Context, statuses map[int64]string) error {
	if len(statuses) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(statuses))
	for id, status := range statuses {
		if id <= 0 {
			return types.ErrInvalidID
		}
		if !types.ValidNoteStatus(status) {
			return fmt.Errorf("note %d %q: %w", id, status, types.ErrInvalidStatus)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return nt.backend.write(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx,
				"UPDATE meeting_note SET status = ? WHERE id = ?", statuses[id], id)
			if err != nil {
				return fmt.Errorf("updating meeting note %d status: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("meeting note %d: %w", id, types.ErrNotFound)
			}
		}
		return nil
	})
}

// noteJoinTables hold a meeting_note_id column.
var noteJoinTables = []string{
	"meeting_note_backlog",
	"meeting_note_dependency",
	"meeting_note_theme",
	"meeting_note_evaluation",
}

// Delete removes the meeting notes with ids and their links.
func (nt *MeetingNoteTable) Delete(ctx context.Context, ids ...int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	in := placeholders(len(ids))
	args := idArgs(ids)
	return nt.backend.write(ctx, func(tx *sql.Tx) error {
		for _, table := range noteJoinTables {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE meeting_note_id IN (%s)", table, in), args...,
			); err != nil {
				return fmt.Errorf("deleting %s rows: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM meeting_note WHERE id IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("deleting meeting notes: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("meeting notes %v: %w", ids, types.ErrNotFound)
		}
		return nil
	})
}
