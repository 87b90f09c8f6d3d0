// workers/monitor_scheduler.go
package workers

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"

	"player-monitor-system/logging"
	"player-monitor-system/models"
	"player-monitor-system/services"
)

type BatchPoller interface {
	RunBatchPoll(ctx context.Context) (models.RunSummary, error)
}

type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (services.PurgeResult, error)
}

// MonitorScheduler runs the periodic batch poll and the daily retention purge.
type MonitorScheduler struct {
	poller        BatchPoller
	purger        Purger
	pollInterval  time.Duration
	retentionDays int
	sched         gocron.Scheduler
}

// NewMonitorScheduler wires both jobs; a nil purger or retentionDays <= 0
// leaves retention off.
func NewMonitorScheduler(poller BatchPoller, purger Purger, pollInterval time.Duration, retentionDays int) (*MonitorScheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &MonitorScheduler{
		poller:        poller,
		purger:        purger,
		pollInterval:  pollInterval,
		retentionDays: retentionDays,
		sched:         sched,
	}, nil
}

func (m *MonitorScheduler) Start(ctx context.Context) error {
	// a slow run pushes the next one back instead of stacking up
	_, err := m.sched.NewJob(
		gocron.DurationJob(m.pollInterval),
		gocron.NewTask(func() { m.pollOnce(ctx) }),
		gocron.WithName("batch-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	if m.purger != nil && m.retentionDays > 0 {
		_, err = m.sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 30, 0))),
			gocron.NewTask(func() { m.purgeOnce(ctx) }),
			gocron.WithName("retention-purge"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
	}

	m.sched.Start()
	logging.Info().Dur("interval", m.pollInterval).Int("retention_days", m.retentionDays).Msg("[SCHEDULER] ⏱️ Monitoring scheduler started")
	return nil
}

func (m *MonitorScheduler) pollOnce(ctx context.Context) {
	summary, err := m.poller.RunBatchPoll(ctx)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		logging.Info().Msg("[SCHEDULER] Previous run still active, skipping tick")
	case err != nil:
		logging.Error().Err(err).Str("job_id", summary.JobID).Msg("[SCHEDULER] Batch poll failed")
	}
}

func (m *MonitorScheduler) purgeOnce(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -m.retentionDays)
	if _, err := m.purger.Purge(ctx, cutoff); err != nil {
		logging.Error().Err(err).Msg("[SCHEDULER] Retention purge failed")
	}
}

func (m *MonitorScheduler) Shutdown() error {
	return m.sched.Shutdown()
}
