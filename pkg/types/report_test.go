package types

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalLess(t *testing.T) {
	in := []string{"Sprint 10", "Sprint 2", "Sprint 1", "Backlog", "Sprint 11", "Sprint 02"}
	sort.Slice(in, func(i, j int) bool { return NaturalLess(in[i], in[j]) })
	assert.Equal(t, []string{"Backlog", "Sprint 1", "Sprint 02", "Sprint 2", "Sprint 10", "Sprint 11"}, in)
}

func TestPivotSprintTeam(t *testing.T) {
	cells := []SprintTeamCell{
		{Sprint: "Sprint 10", Team: "Team 2", Points: 5},
		{Sprint: "Sprint 2", Team: "Team 1", Points: 3},
		{Sprint: "Sprint 2", Team: "Team 2", Points: 8},
	}

	p := PivotSprintTeam(cells)
	assert.Equal(t, []string{"Sprint 2", "Sprint 10"}, p.Sprints)
	assert.Equal(t, []string{"Team 1", "Team 2"}, p.Teams)
	assert.Equal(t, [][]int64{{3, 8}, {0, 5}}, p.Points)
}

func TestPivotSprintTeamEmpty(t *testing.T) {
	p := PivotSprintTeam(nil)
	assert.Empty(t, p.Sprints)
	assert.Empty(t, p.Teams)
	assert.Empty(t, p.Points)
}
