package types

// Table names in the backlog store.
const (
	BacklogTable               = "backlog"
	DependencyTable            = "dependency"
	ThemeTable                 = "theme"
	EvaluationTable            = "evaluation"
	SubBacklogTable            = "sub_backlog"
	MeetingTable               = "meeting"
	MeetingNoteTable           = "meeting_note"
	BacklogDependencyTable     = "backlog_dependency"
	SubBacklogBacklogTable     = "sub_backlog_backlog"
	MeetingNoteBacklogTable    = "meeting_note_backlog"
	MeetingNoteDependencyTable = "meeting_note_dependency"
	MeetingNoteThemeTable      = "meeting_note_theme"
	MeetingNoteEvaluationTable = "meeting_note_evaluation"
)

// StandardTableNames lists every table in dependency order: lookups and
// entities first, then association tables.
var StandardTableNames = []string{
	ThemeTable,
	EvaluationTable,
	BacklogTable,
	DependencyTable,
	SubBacklogTable,
	MeetingTable,
	MeetingNoteTable,
	BacklogDependencyTable,
	SubBacklogBacklogTable,
	MeetingNoteBacklogTable,
	MeetingNoteDependencyTable,
	MeetingNoteThemeTable,
	MeetingNoteEvaluationTable,
}
