package types

import (
	"fmt"
	"strings"
)

// Dependency is work owned by another team that backlogs rely on.
type Dependency struct {
	ID      int64  `json:"id"`
	Task    string `json:"task"`
	SubTask string `json:"sub_task,omitempty"`
	Team    string `json:"team"`
}

// Validate checks the task and resolves the team against the configured
// enumeration, rewriting it to the enumerated spelling.
func (d *Dependency) Validate(cfg Config) error {
	d.Task = strings.TrimSpace(d.Task)
	d.SubTask = strings.TrimSpace(d.SubTask)
	if d.Task == "" {
		return ErrInvalidTask
	}
	team, ok := cfg.CanonicalTeam(d.Team)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTeam, d.Team)
	}
	d.Team = team
	return nil
}

// Label renders the dependency the way pickers and reports show it.
func (d *Dependency) Label() string {
	if d.SubTask == "" {
		return fmt.Sprintf("%d: %s (%s)", d.ID, d.Task, d.Team)
	}
	return fmt.Sprintf("%d: %s / %s (%s)", d.ID, d.Task, d.SubTask, d.Team)
}
