package types

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ReportBacklog holds the backlog columns shared by the join reports.
type ReportBacklog struct {
	BacklogID          int64  `json:"backlog_id"`
	BacklogTask        string `json:"backlog_task"`
	BacklogTaskDetails string `json:"backlog_task_details"`
	BacklogTheme       string `json:"backlog_theme"`
	BacklogEvaluation  string `json:"backlog_evaluation"`
	BacklogTeam        string `json:"backlog_team"`
	BacklogSprint      string `json:"backlog_sprint"`
}

// ReportDependency holds dependency columns; DependencyID is nil when the
// backlog has no dependency.
type ReportDependency struct {
	DependencyID      *int64 `json:"dependency_id"`
	DependencyTask    string `json:"dependency_task"`
	DependencySubTask string `json:"dependency_sub_task"`
	DependencyTeam    string `json:"dependency_team"`
}

// ReportSubBacklog holds sub-backlog columns; SubBacklogID is nil when the
// backlog belongs to no sub-backlog.
type ReportSubBacklog struct {
	SubBacklogID    *int64 `json:"sub_backlog_id"`
	SubBacklogTitle string `json:"sub_backlog_title"`
	SubBacklogNote  string `json:"sub_backlog_note"`
}

// BacklogDependencyRow is one backlog-dependency pair.
type BacklogDependencyRow struct {
	ReportBacklog
	ReportDependency
}

// BacklogSubBacklogRow is one backlog-sub-backlog pair.
type BacklogSubBacklogRow struct {
	ReportBacklog
	ReportSubBacklog
}

// BacklogSubBacklogDependencyRow is one backlog-sub-backlog-dependency triple.
type BacklogSubBacklogDependencyRow struct {
	ReportBacklog
	ReportSubBacklog
	ReportDependency
}

// SprintTeamCell is the story point total of one team in one sprint.
type SprintTeamCell struct {
	Sprint string `json:"sprint"`
	Team   string `json:"team"`
	Points int64  `json:"points"`
}

// SprintTeamPivot is the sprint by team matrix. Points[i][j] is the total for
// Sprints[i] and Teams[j]; absent pairs are zero.
type SprintTeamPivot struct {
	Sprints []string  `json:"sprints"`
	Teams   []string  `json:"teams"`
	Points  [][]int64 `json:"points"`
}

// PivotSprintTeam lays cells out as a zero-filled matrix with sprints in
// natural order and teams sorted by name.
func PivotSprintTeam(cells []SprintTeamCell) SprintTeamPivot {
	sprintSet := make(map[string]bool)
	teamSet := make(map[string]bool)
	for _, c := range cells {
		sprintSet[c.Sprint] = true
		teamSet[c.Team] = true
	}

	p := SprintTeamPivot{}
	for s := range sprintSet {
		p.Sprints = append(p.Sprints, s)
	}
	for t := range teamSet {
		p.Teams = append(p.Teams, t)
	}
	sort.Slice(p.Sprints, func(i, j int) bool { return NaturalLess(p.Sprints[i], p.Sprints[j]) })
	sort.Strings(p.Teams)

	sprintIdx := make(map[string]int, len(p.Sprints))
	for i, s := range p.Sprints {
		sprintIdx[s] = i
	}
	teamIdx := make(map[string]int, len(p.Teams))
	for i, t := range p.Teams {
		teamIdx[t] = i
	}

	p.Points = make([][]int64, len(p.Sprints))
	for i := range p.Points {
		p.Points[i] = make([]int64, len(p.Teams))
	}
	for _, c := range cells {
		p.Points[sprintIdx[c.Sprint]][teamIdx[c.Team]] += c.Points
	}
	return p
}

// NaturalLess orders strings with embedded numbers by value, so "Sprint 2"
// sorts before "Sprint 10". Ties fall back to byte order.
func NaturalLess(a, b string) bool {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		ca, cb := rune(a[ai]), rune(b[bi])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			aj := ai
			for aj < len(a) && unicode.IsDigit(rune(a[aj])) {
				aj++
			}
			bj := bi
			for bj < len(b) && unicode.IsDigit(rune(b[bj])) {
				bj++
			}
			na, errA := strconv.ParseUint(a[ai:aj], 10, 64)
			nb, errB := strconv.ParseUint(b[bi:bj], 10, 64)
			if errA == nil && errB == nil && na != nb {
				return na < nb
			}
			if errA != nil || errB != nil {
				if c := strings.Compare(a[ai:aj], b[bi:bj]); c != 0 {
					return c < 0
				}
			}
			ai, bi = aj, bj
			continue
		}
		if ca != cb {
			return ca < cb
		}
		ai++
		bi++
	}
	if len(a)-ai != len(b)-bi {
		return len(a)-ai < len(b)-bi
	}
	return a < b
}
