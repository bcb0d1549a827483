package types

// SubBacklog groups backlogs under a titled container. BacklogTasks is filled
// by listings with the tasks of the linked backlogs.
type SubBacklog struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Note         string   `json:"note,omitempty"`
	BacklogTasks []string `json:"backlog_tasks,omitempty"`
}
