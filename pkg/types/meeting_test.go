package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeetingTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-05 09:30", "2024-03-05 09:30"},
		{"2024-03-05T09:30", "2024-03-05 09:30"},
		{"2024-03-05T09:30:00Z", "2024-03-05 09:30"},
		{"2024-03-05 09:30:59", "2024-03-05 09:30"},
		{"2024-03-05", "2024-03-05 00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMeetingTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMeetingTime("next tuesday")
	assert.ErrorIs(t, err, ErrInvalidDatetime)
}

func TestMeetingValidate(t *testing.T) {
	m := Meeting{Title: " Planning ", Datetime: "2024-03-05"}
	require.NoError(t, m.Validate())
	assert.Equal(t, "Planning", m.Title)
	assert.Equal(t, "2024-03-05 00:00", m.Datetime)

	assert.ErrorIs(t, (&Meeting{Datetime: "2024-03-05"}).Validate(), ErrInvalidTitle)
	assert.ErrorIs(t, (&Meeting{Title: "x"}).Validate(), ErrInvalidDatetime)
}

func TestMeetingNoteValidate(t *testing.T) {
	n := MeetingNote{NoteType: " TODO ", Note: " follow up "}
	require.NoError(t, n.Validate())
	assert.Equal(t, NoteTypeTodo, n.NoteType)
	assert.Equal(t, "follow up", n.Note)
	assert.Equal(t, NoteStatusOpen, n.Status)

	assert.ErrorIs(t, (&MeetingNote{NoteType: "todo"}).Validate(), ErrInvalidNote)
	assert.ErrorIs(t, (&MeetingNote{NoteType: "idea", Note: "x"}).Validate(), ErrInvalidNoteType)
	assert.ErrorIs(t, (&MeetingNote{NoteType: "todo", Note: "x", Status: "done"}).Validate(), ErrInvalidStatus)
}

func TestMeetingNoteSetStatus(t *testing.T) {
	n := MeetingNote{Status: NoteStatusCompleted}

	require.NoError(t, n.SetStatus(NoteStatusOpen))
	assert.Equal(t, NoteStatusOpen, n.Status)

	require.NoError(t, n.SetStatus(NoteStatusInProgress))
	require.NoError(t, n.SetStatus(NoteStatusInProgress))
	assert.Equal(t, NoteStatusInProgress, n.Status)

	assert.ErrorIs(t, n.SetStatus("blocked"), ErrInvalidStatus)
	assert.Equal(t, NoteStatusInProgress, n.Status)
}
