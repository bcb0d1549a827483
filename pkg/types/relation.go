package types

// Relation names one direction of a many-to-many association. Two relations
// that share a join table edit the same rows from opposite owners.
type Relation string

// Association directions.
const (
	RelBacklogDependencies Relation = "backlog-dependencies"
	RelDependencyBacklogs  Relation = "dependency-backlogs"
	RelBacklogSubBacklogs  Relation = "backlog-sub-backlogs"
	RelSubBacklogBacklogs  Relation = "sub-backlog-backlogs"
	RelNoteBacklogs        Relation = "note-backlogs"
	RelNoteDependencies    Relation = "note-dependencies"
	RelNoteThemes          Relation = "note-themes"
	RelNoteEvaluations     Relation = "note-evaluations"
)

// Relations lists every association direction.
var Relations = []Relation{
	RelBacklogDependencies,
	RelDependencyBacklogs,
	RelBacklogSubBacklogs,
	RelSubBacklogBacklogs,
	RelNoteBacklogs,
	RelNoteDependencies,
	RelNoteThemes,
	RelNoteEvaluations,
}
