package types

import "strings"

// Backlog is a unit of planned work with an estimate in story points.
// Theme and Evaluation carry names resolved through ThemeID and EvaluationID;
// on write the store resolves the names, creating lookup rows when absent.
type Backlog struct {
	ID              int64  `json:"id"`
	Task            string `json:"task"`
	TaskDetails     string `json:"task_details,omitempty"`
	LOB             string `json:"lob,omitempty"`
	Image           []byte `json:"-"`
	HasImage        bool   `json:"has_image"`
	ThemeID         int64  `json:"theme_id,omitempty"`
	Theme           string `json:"theme"`
	EvaluationID    int64  `json:"evaluation_id,omitempty"`
	Evaluation      string `json:"evaluation,omitempty"`
	Estimation      *int64 `json:"estimation,omitempty"`
	Team            string `json:"team,omitempty"`
	Sprint          string `json:"sprint,omitempty"`
	DependencyCount int    `json:"dependency_count"`
}

// Validate checks the fields every stored backlog must carry.
func (b *Backlog) Validate() error {
	if strings.TrimSpace(b.Task) == "" {
		return ErrInvalidTask
	}
	if strings.TrimSpace(b.Theme) == "" {
		return ErrInvalidTheme
	}
	if b.Estimation != nil && *b.Estimation < 0 {
		return ErrInvalidEstimation
	}
	return nil
}

// Normalize trims surrounding space from the text fields in place.
func (b *Backlog) Normalize() {
	b.Task = strings.TrimSpace(b.Task)
	b.TaskDetails = strings.TrimSpace(b.TaskDetails)
	b.LOB = strings.TrimSpace(b.LOB)
	b.Theme = strings.TrimSpace(b.Theme)
	b.Evaluation = strings.TrimSpace(b.Evaluation)
	b.Team = strings.TrimSpace(b.Team)
	b.Sprint = strings.TrimSpace(b.Sprint)
}

// EstimationOrZero returns the estimation, treating a missing one as zero.
func (b *Backlog) EstimationOrZero() int64 {
	if b.Estimation == nil {
		return 0
	}
	return *b.Estimation
}

// BacklogLinks lists the counterparts a backlog write replaces. A nil slice
// leaves that association untouched; an empty slice clears it.
type BacklogLinks struct {
	DependencyIDs []int64
	SubBacklogIDs []int64
}

// SplitPart describes one child produced by splitting a backlog.
type SplitPart struct {
	Task        string `json:"task"`
	TaskDetails string `json:"task_details,omitempty"`
	Estimation  int64  `json:"estimation"`
}

// MergeRequest folds IDs into SurvivorID. Overrides, when set, replaces the
// survivor's editable fields; otherwise the survivor keeps its fields and its
// estimation becomes the sum of the merged estimations.
type MergeRequest struct {
	SurvivorID int64
	IDs        []int64
	Overrides  *Backlog
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
