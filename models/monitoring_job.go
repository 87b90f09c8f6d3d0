// models/monitoring_job.go
package models

import "time"

type JobType string

const (
	JobTypeBatchPoll   JobType = "batch_poll"
	JobTypePlayerCheck JobType = "player_check"
)

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// MonitoringJob brackets one pipeline run: running -> completed | failed.
type MonitoringJob struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	JobType      JobType    `gorm:"type:varchar(32);not null;index" json:"job_type"`
	Status       JobStatus  `gorm:"type:varchar(16);not null;index;default:'running'" json:"status"`
	StartedAt    time.Time  `gorm:"not null;index" json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`

	// Run summary, filled in when the job finishes
	PlayersChecked    int   `gorm:"not null;default:0" json:"players_checked"`
	NotificationsSent int   `gorm:"not null;default:0" json:"notifications_sent"`
	ErrorCount        int   `gorm:"not null;default:0" json:"error_count"`
	DurationMs        int64 `gorm:"not null;default:0" json:"duration_ms"`
}

func (MonitoringJob) TableName() string {
	return "monitoring_jobs"
}
