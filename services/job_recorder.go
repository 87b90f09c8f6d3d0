// services/job_recorder.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"player-monitor-system/logging"
	"player-monitor-system/models"
)

const (
	DefaultJobListLimit = 20
	MaxJobListLimit     = 100
)

// JobRecorder brackets every run with a monitoring_jobs row. Bookkeeping is
// best effort: a storage failure is logged and never stops the run.
type JobRecorder struct {
	Store JobStore
	now   func() time.Time
}

func NewJobRecorder(store JobStore) *JobRecorder {
	return &JobRecorder{Store: store, now: time.Now}
}

// Begin records a running job and returns its id, even if the insert failed.
func (r *JobRecorder) Begin(ctx context.Context, jobType models.JobType) string {
	job := &models.MonitoringJob{
		ID:        uuid.NewString(),
		JobType:   jobType,
		Status:    models.JobStatusRunning,
		StartedAt: r.now().UTC(),
	}
	if err := r.Store.Insert(ctx, job); err != nil {
		logging.Error().Err(err).Str("job_id", job.ID).Str("job_type", string(jobType)).Msg("[JOB] Failed to record job start")
	}
	return job.ID
}

// Complete moves a running job to its terminal status. A job that is already
// terminal is left untouched.
func (r *JobRecorder) Complete(ctx context.Context, jobID string, summary models.RunSummary, status models.JobStatus, errMsg string) {
	if !status.Terminal() {
		logging.Error().Str("job_id", jobID).Str("status", string(status)).Msg("[JOB] Refusing to complete job with non-terminal status")
		return
	}
	completedAt := r.now().UTC()
	job := &models.MonitoringJob{
		ID:                jobID,
		Status:            status,
		CompletedAt:       &completedAt,
		PlayersChecked:    summary.PlayersChecked,
		NotificationsSent: summary.NotificationsSent,
		ErrorCount:        len(summary.Errors),
		DurationMs:        summary.DurationMs,
	}
	if errMsg != "" {
		job.ErrorMessage = &errMsg
	}

	updated, err := r.Store.Finish(ctx, job)
	if err != nil {
		logging.Error().Err(err).Str("job_id", jobID).Msg("[JOB] Failed to record job completion")
		return
	}
	if !updated {
		logging.Warn().Str("job_id", jobID).Str("status", string(status)).Msg("[JOB] Job not running, completion ignored")
	}
}

// ListRecent clamps limit to [1, MaxJobListLimit], using the default for <= 0.
func (r *JobRecorder) ListRecent(ctx context.Context, limit int) ([]models.MonitoringJob, error) {
	if limit <= 0 {
		limit = DefaultJobListLimit
	}
	if limit > MaxJobListLimit {
		limit = MaxJobListLimit
	}
	jobs, err := r.Store.List(ctx, limit)
	if jobs == nil {
		jobs = []models.MonitoringJob{}
	}
	return jobs, err
}

func (r *JobRecorder) Get(ctx context.Context, id string) (*models.MonitoringJob, error) {
	return r.Store.Get(ctx, id)
}
