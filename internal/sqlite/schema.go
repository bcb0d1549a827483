package sqlite

import (
	"fmt"
	"strings"
)

// migrationsTable records applied schema versions.
const migrationsTable = "schema_migrations"

// column describes one column of a table shape.
type column struct {
	name    string
	typ     string // declared type: INTEGER, TEXT, BLOB
	notNull bool
	dflt    string // SQL literal used for DEFAULT and for backfilling
	pk      bool   // INTEGER PRIMARY KEY AUTOINCREMENT
	extra   string // trailing constraint such as REFERENCES
}

// definition renders the column for CREATE TABLE.
func (c column) definition() string {
	parts := []string{c.name, c.typ}
	if c.pk {
		parts = append(parts, "PRIMARY KEY AUTOINCREMENT")
	}
	if c.notNull {
		parts = append(parts, "NOT NULL")
	}
	if c.dflt != "" {
		parts = append(parts, "DEFAULT "+c.dflt)
	}
	if c.extra != "" {
		parts = append(parts, c.extra)
	}
	return strings.Join(parts, " ")
}

// addDefinition renders the column for ALTER TABLE ADD COLUMN. Required
// columns get a default so existing rows stay valid: empty string for text
// unless the shape names another.
func (c column) addDefinition() string {
	added := c
	if added.notNull && added.dflt == "" {
		added.dflt = "''"
	}
	return added.definition()
}

// fill is the value used for rows that lack the column.
func (c column) fill() string {
	switch {
	case c.dflt != "":
		return c.dflt
	case c.notNull:
		return "''"
	default:
		return "NULL"
	}
}

// shape is the column layout of one table plus table constraints.
type shape struct {
	table       string
	columns     []column
	constraints []string
}

// createSQL renders CREATE TABLE for the shape under name.
func (s shape) createSQL(name string, ifNotExists bool) string {
	defs := make([]string, 0, len(s.columns)+len(s.constraints))
	for _, c := range s.columns {
		defs = append(defs, c.definition())
	}
	defs = append(defs, s.constraints...)

	guard := ""
	if ifNotExists {
		guard = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (\n\t%s\n)", guard, name, strings.Join(defs, ",\n\t"))
}

// column returns the named column of the shape.
func (s shape) column(name string) (column, bool) {
	for _, c := range s.columns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

func idColumn() column {
	return column{name: "id", typ: "INTEGER", pk: true}
}

func joinShape(table, left, leftRef, right, rightRef string) shape {
	return shape{
		table: table,
		columns: []column{
			{name: left, typ: "INTEGER", notNull: true, extra: "REFERENCES " + leftRef + "(id) ON DELETE CASCADE"},
			{name: right, typ: "INTEGER", notNull: true, extra: "REFERENCES " + rightRef + "(id) ON DELETE CASCADE"},
		},
		constraints: []string{fmt.Sprintf("PRIMARY KEY (%s, %s)", left, right)},
	}
}

// Text-era backlog: theme and evaluation held as names. Legacy stores are
// normalized to this shape before the lookup foreign keys are introduced.
var textBacklogShape = shape{
	table: "backlog",
	columns: []column{
		idColumn(),
		{name: "task", typ: "TEXT", notNull: true},
		{name: "task_details", typ: "TEXT"},
		{name: "lob", typ: "TEXT"},
		{name: "image_blob", typ: "BLOB"},
		{name: "theme", typ: "TEXT", notNull: true},
		{name: "evaluation", typ: "TEXT"},
		{name: "estimation", typ: "INTEGER"},
		{name: "team", typ: "TEXT"},
		{name: "sprint", typ: "TEXT"},
	},
}

// backlogShape is the current backlog layout.
var backlogShape = shape{
	table: "backlog",
	columns: []column{
		idColumn(),
		{name: "task", typ: "TEXT", notNull: true},
		{name: "task_details", typ: "TEXT"},
		{name: "lob", typ: "TEXT"},
		{name: "image_blob", typ: "BLOB"},
		{name: "theme_id", typ: "INTEGER", extra: "REFERENCES theme(id) ON DELETE SET NULL"},
		{name: "evaluation_id", typ: "INTEGER", extra: "REFERENCES evaluation(id) ON DELETE SET NULL"},
		{name: "estimation", typ: "INTEGER"},
		{name: "team", typ: "TEXT"},
		{name: "sprint", typ: "TEXT"},
	},
}

var dependencyShape = shape{
	table: "dependency",
	columns: []column{
		idColumn(),
		{name: "task", typ: "TEXT", notNull: true},
		{name: "sub_task", typ: "TEXT"},
		{name: "team", typ: "TEXT", notNull: true},
	},
}

var themeShape = shape{
	table: "theme",
	columns: []column{
		idColumn(),
		{name: "name", typ: "TEXT", notNull: true, extra: "UNIQUE"},
	},
}

var evaluationShape = shape{
	table: "evaluation",
	columns: []column{
		idColumn(),
		{name: "name", typ: "TEXT", notNull: true, extra: "UNIQUE"},
		{name: "note", typ: "TEXT"},
	},
}

// Text-era sub-backlog: a single optional parent backlog column kept for
// legacy stores until its links move to sub_backlog_backlog.
var textSubBacklogShape = shape{
	table: "sub_backlog",
	columns: []column{
		idColumn(),
		{name: "backlog_id", typ: "INTEGER"},
		{name: "title", typ: "TEXT", notNull: true},
		{name: "note", typ: "TEXT"},
	},
}

var subBacklogShape = shape{
	table: "sub_backlog",
	columns: []column{
		idColumn(),
		{name: "title", typ: "TEXT", notNull: true},
		{name: "note", typ: "TEXT"},
	},
}

var meetingShape = shape{
	table: "meeting",
	columns: []column{
		idColumn(),
		{name: "title", typ: "TEXT", notNull: true},
		{name: "meeting_datetime", typ: "TEXT", notNull: true},
	},
}

var meetingNoteShape = shape{
	table: "meeting_note",
	columns: []column{
		idColumn(),
		{name: "meeting_id", typ: "INTEGER", extra: "REFERENCES meeting(id) ON DELETE SET NULL"},
		{name: "meeting_date", typ: "TEXT"},
		{name: "topic", typ: "TEXT"},
		{name: "note_type", typ: "TEXT", notNull: true, dflt: "''"},
		{name: "note", typ: "TEXT", notNull: true},
		{name: "status", typ: "TEXT", notNull: true, dflt: "'open'"},
	},
}

var (
	backlogDependencyShape     = joinShape("backlog_dependency", "backlog_id", "backlog", "dependency_id", "dependency")
	subBacklogBacklogShape     = joinShape("sub_backlog_backlog", "sub_backlog_id", "sub_backlog", "backlog_id", "backlog")
	meetingNoteBacklogShape    = joinShape("meeting_note_backlog", "meeting_note_id", "meeting_note", "backlog_id", "backlog")
	meetingNoteDependencyShape = joinShape("meeting_note_dependency", "meeting_note_id", "meeting_note", "dependency_id", "dependency")
	meetingNoteThemeShape      = joinShape("meeting_note_theme", "meeting_note_id", "meeting_note", "theme_id", "theme")
	meetingNoteEvaluationShape = joinShape("meeting_note_evaluation", "meeting_note_id", "meeting_note", "evaluation_id", "evaluation")
)

// textEraShapes are created by the base migration, in creation order.
var textEraShapes = []shape{
	themeShape,
	evaluationShape,
	textBacklogShape,
	dependencyShape,
	backlogDependencyShape,
	textSubBacklogShape,
	subBacklogBacklogShape,
	meetingShape,
	meetingNoteShape,
	meetingNoteBacklogShape,
	meetingNoteDependencyShape,
	meetingNoteThemeShape,
	meetingNoteEvaluationShape,
}

// indexes speeds the reverse side of each association and the report joins.
var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_backlog_dependency_dependency ON backlog_dependency(dependency_id)",
	"CREATE INDEX IF NOT EXISTS idx_sub_backlog_backlog_backlog ON sub_backlog_backlog(backlog_id)",
	"CREATE INDEX IF NOT EXISTS idx_meeting_note_backlog_backlog ON meeting_note_backlog(backlog_id)",
	"CREATE INDEX IF NOT EXISTS idx_meeting_note_dependency_dependency ON meeting_note_dependency(dependency_id)",
	"CREATE INDEX IF NOT EXISTS idx_meeting_note_theme_theme ON meeting_note_theme(theme_id)",
	"CREATE INDEX IF NOT EXISTS idx_meeting_note_evaluation_evaluation ON meeting_note_evaluation(evaluation_id)",
	"CREATE INDEX IF NOT EXISTS idx_meeting_note_meeting ON meeting_note(meeting_id)",
	"CREATE INDEX IF NOT EXISTS idx_backlog_theme ON backlog(theme_id)",
	"CREATE INDEX IF NOT EXISTS idx_backlog_evaluation ON backlog(evaluation_id)",
	"CREATE INDEX IF NOT EXISTS idx_backlog_sprint_team ON backlog(sprint, team)",
}
