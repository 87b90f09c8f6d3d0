// models/run_summary.go
package models

// RunSummary is what a trigger caller gets back for every run, including
// degraded and failed ones.
type RunSummary struct {
	JobID             string    `json:"job_id"`
	JobType           JobType   `json:"job_type"`
	Status            JobStatus `json:"status"`
	PlayersChecked    int       `json:"players_checked"`
	NotificationsSent int       `json:"notifications_sent"`
	Errors            []string  `json:"errors"`
	DurationMs        int64     `json:"duration_ms"`
}
