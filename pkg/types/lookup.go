package types

// Theme is a named grouping for backlogs. BacklogCount is filled by listings.
type Theme struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	BacklogCount int    `json:"backlog_count"`
}

// Evaluation is a named assessment attached to backlogs.
type Evaluation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Note string `json:"note,omitempty"`
}
