// services/retention_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"player-monitor-system/logging"
	"player-monitor-system/models"
)

type RetentionService struct {
	DB *gorm.DB
}

func NewRetentionService(db *gorm.DB) *RetentionService {
	return &RetentionService{DB: db}
}

type PurgeResult struct {
	NotificationsDeleted int64
	JobsDeleted          int64
}

// Purge deletes notification log rows and finished jobs older than cutoff.
// Running jobs are never removed.
func (s *RetentionService) Purge(ctx context.Context, cutoff time.Time) (PurgeResult, error) {
	var out PurgeResult
	cutoff = cutoff.UTC()

	res := s.DB.WithContext(ctx).
		Where("sent_at < ?", cutoff).
		Delete(&models.NotificationLogEntry{})
	if res.Error != nil {
		return out, fmt.Errorf("purge notification log: %w", res.Error)
	}
	out.NotificationsDeleted = res.RowsAffected

	res = s.DB.WithContext(ctx).
		Where("started_at < ? AND status IN ?", cutoff, []models.JobStatus{models.JobStatusCompleted, models.JobStatusFailed}).
		Delete(&models.MonitoringJob{})
	if res.Error != nil {
		return out, fmt.Errorf("purge monitoring jobs: %w", res.Error)
	}
	out.JobsDeleted = res.RowsAffected

	logging.Info().
		Time("cutoff", cutoff).
		Int64("notifications_deleted", out.NotificationsDeleted).
		Int64("jobs_deleted", out.JobsDeleted).
		Msg("[RETENTION] 🧹 Purge finished")
	return out, nil
}
