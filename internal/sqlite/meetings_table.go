package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/backlog/pkg/types"
)

// MeetingTable reads and writes meetings.
type MeetingTable struct {
	backend *Backend
}

const meetingSelect = "SELECT id, title, meeting_datetime FROM meeting"

func hydrateMeeting(row scanner) (*types.Meeting, error) {
	var m types.Meeting
	if err := row.Scan(&m.ID, &m.Title, &m.Datetime); err != nil {
		return nil, err
	}
	return &m, nil
}

// Get returns the meeting with id.
func (mt *MeetingTable) Get(ctx context.Context, id int64) (*types.Meeting, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var m *types.Meeting
	err := mt.backend.read(func(db *sql.DB) error {
		var err error
		m, err = hydrateMeeting(db.QueryRowContext(ctx, meetingSelect+" WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("meeting %d: %w", id, types.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("getting meeting %d: %w", id, err)
		}
		return nil
	})
	return m, err
}

// Fetch lists meetings newest first.
func (mt *MeetingTable) Fetch(ctx context.Context) ([]*types.Meeting, error) {
	var results []*types.Meeting
	err := mt.backend.read(func(db *sql.DB) error {
		var err error
		results, err = queryAll(ctx, db, hydrateMeeting, meetingSelect+" ORDER BY meeting_datetime DESC, id DESC")
		if err != nil {
			return fmt.Errorf("fetching meetings: %w", err)
		}
		return nil
	})
	return results, err
}

// Set creates m when m.ID is zero and updates it otherwise. The datetime is
// stored as "YYYY-MM-DD HH:MM".
func (mt *MeetingTable) Set(ctx context.Context, m *types.Meeting) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	err := mt.backend.write(ctx, func(tx *sql.Tx) error {
		if m.ID == 0 {
			res, err := tx.ExecContext(ctx,
				"INSERT INTO meeting (title, meeting_datetime) VALUES (?, ?)", m.Title, m.Datetime)
			if err != nil {
				return fmt.Errorf("inserting meeting: %w", err)
			}
			m.ID, err = res.LastInsertId()
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE meeting SET title = ?, meeting_datetime = ? WHERE id = ?", m.Title, m.Datetime, m.ID)
		if err != nil {
			return fmt.Errorf("updating meeting %d: %w", m.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("meeting %d: %w", m.ID, types.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

// Delete removes the meetings with ids. Their notes survive without a
// meeting.
func (mt *MeetingTable) Delete(ctx context.Context, ids ...int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return types.ErrInvalidID
	}
	in := placeholders(len(ids))
	args := idArgs(ids)
	return mt.backend.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE meeting_note SET meeting_id = NULL WHERE meeting_id IN ("+in+")", args...,
		); err != nil {
			return fmt.Errorf("detaching meeting notes: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM meeting WHERE id IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("deleting meetings: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("meetings %v: %w", ids, types.ErrNotFound)
		}
		return nil
	})
}
