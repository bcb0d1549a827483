package types

// Import skip reasons.
const (
	SkipMissingTask       = "missing_task"
	SkipMissingTheme      = "missing_theme"
	SkipMissingTeam       = "missing_team"
	SkipInvalidEstimation = "invalid_estimation"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	RunID       string         `json:"run_id"`
	Imported    int            `json:"imported"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons"`
}

// Skip records one skipped row under reason.
func (r *ImportResult) Skip(reason string) {
	if r.SkipReasons == nil {
		r.SkipReasons = make(map[string]int)
	}
	r.SkipReasons[reason]++
	r.Skipped++
}
