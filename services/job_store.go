// services/job_store.go
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"player-monitor-system/models"
)

type JobRepository struct {
	DB *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{DB: db}
}

func (r *JobRepository) Insert(ctx context.Context, job *models.MonitoringJob) error {
	return r.DB.WithContext(ctx).Create(job).Error
}

// Finish only touches a job that is still running; terminal states are final.
func (r *JobRepository) Finish(ctx context.Context, job *models.MonitoringJob) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.MonitoringJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":             job.Status,
			"completed_at":       job.CompletedAt,
			"error_message":      job.ErrorMessage,
			"players_checked":    job.PlayersChecked,
			"notifications_sent": job.NotificationsSent,
			"error_count":        job.ErrorCount,
			"duration_ms":        job.DurationMs,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List returns the most recent jobs first.
func (r *JobRepository) List(ctx context.Context, limit int) ([]models.MonitoringJob, error) {
	var jobs []models.MonitoringJob
	err := r.DB.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Get returns nil, nil for an unknown id.
func (r *JobRepository) Get(ctx context.Context, id string) (*models.MonitoringJob, error) {
	var job models.MonitoringJob
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
