package types

import (
	"strings"
	"time"
)

// MeetingTimeLayout is the stored form of Meeting.Datetime.
const MeetingTimeLayout = "2006-01-02 15:04"

// meetingTimeLayouts are the accepted input forms, tried in order.
var meetingTimeLayouts = []string{
	MeetingTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Meeting is a dated event that notes can be filed under.
type Meeting struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Datetime string `json:"meeting_datetime"`
}

// ParseMeetingTime parses text in any accepted layout and returns it in
// MeetingTimeLayout.
func ParseMeetingTime(text string) (string, error) {
	text = strings.TrimSpace(text)
	for _, layout := range meetingTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format(MeetingTimeLayout), nil
		}
	}
	return "", ErrInvalidDatetime
}

// Validate checks the title and normalizes Datetime.
func (m *Meeting) Validate() error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return ErrInvalidTitle
	}
	dt, err := ParseMeetingTime(m.Datetime)
	if err != nil {
		return err
	}
	m.Datetime = dt
	return nil
}

// Meeting note types.
const (
	NoteTypeTodo     = "todo"
	NoteTypeDecision = "decision"
)

// Meeting note statuses.
const (
	NoteStatusOpen       = "open"
	NoteStatusInProgress = "in-progress"
	NoteStatusCompleted  = "completed"
)

var validNoteTypes = map[string]bool{
	NoteTypeTodo:     true,
	NoteTypeDecision: true,
}

var validNoteStatuses = map[string]bool{
	NoteStatusOpen:       true,
	NoteStatusInProgress: true,
	NoteStatusCompleted:  true,
}

// ValidNoteStatus reports whether status is a recognized note status.
func ValidNoteStatus(status string) bool {
	return validNoteStatuses[status]
}

// MeetingNote is a to-do or decision recorded against a meeting and linked to
// any number of backlogs, dependencies, themes, and evaluations.
type MeetingNote struct {
	ID          int64  `json:"id"`
	MeetingID   *int64 `json:"meeting_id,omitempty"`
	MeetingDate string `json:"meeting_date,omitempty"`
	Topic       string `json:"topic,omitempty"`
	NoteType    string `json:"note_type"`
	Note        string `json:"note"`
	Status      string `json:"status"`
}

// Validate normalizes the note and checks its type and status. A blank
// status becomes open.
func (n *MeetingNote) Validate() error {
	n.Note = strings.TrimSpace(n.Note)
	n.Topic = strings.TrimSpace(n.Topic)
	n.MeetingDate = strings.TrimSpace(n.MeetingDate)
	n.NoteType = strings.ToLower(strings.TrimSpace(n.NoteType))
	if n.Note == "" {
		return ErrInvalidNote
	}
	if !validNoteTypes[n.NoteType] {
		return ErrInvalidNoteType
	}
	if n.Status == "" {
		n.Status = NoteStatusOpen
	}
	return n.SetStatus(n.Status)
}

// SetStatus moves the note to status. Any status may follow any other.
func (n *MeetingNote) SetStatus(status string) error {
	if !validNoteStatuses[status] {
		return ErrInvalidStatus
	}
	n.Status = status
	return nil
}

// NoteLinks lists the counterparts a note write replaces. A nil slice leaves
// that association untouched; an empty slice clears it.
type NoteLinks struct {
	BacklogIDs    []int64 `json:"backlog_ids"`
	DependencyIDs []int64 `json:"dependency_ids"`
	ThemeIDs      []int64 `json:"theme_ids"`
	EvaluationIDs []int64 `json:"evaluation_ids"`
}
