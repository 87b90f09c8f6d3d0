// services/monitor_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"player-monitor-system/logging"
	"player-monitor-system/metrics"
	"player-monitor-system/models"
	"player-monitor-system/utils"
)

// Dispatcher fans a player event out to subscribers.
type Dispatcher interface {
	NotifySubscribers(ctx context.Context, username string, event models.PlayerEvent) (DispatchResult, error)
}

// MonitorService drives one polling run at a time: resolve targets, fetch,
// classify, persist, notify. Every run is bracketed by a monitoring job.
type MonitorService struct {
	Subscriptions SubscriptionSource
	Source        StatusSource
	Statuses      PlayerStatusStore
	Dispatcher    Dispatcher
	Jobs          *JobRecorder
	Lock          RunLock

	BatchSize    int
	BatchPause   time.Duration
	CheckPause   time.Duration
	FetchTimeout time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

type MonitorOptions struct {
	BatchSize    int
	BatchPause   time.Duration
	CheckPause   time.Duration
	FetchTimeout time.Duration
}

func NewMonitorService(
	subs SubscriptionSource,
	source StatusSource,
	statuses PlayerStatusStore,
	dispatcher Dispatcher,
	jobs *JobRecorder,
	lock RunLock,
	opts MonitorOptions,
) *MonitorService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if lock == nil {
		lock = &LocalRunLock{}
	}
	return &MonitorService{
		Subscriptions: subs,
		Source:        source,
		Statuses:      statuses,
		Dispatcher:    dispatcher,
		Jobs:          jobs,
		Lock:          lock,
		BatchSize:     opts.BatchSize,
		BatchPause:    opts.BatchPause,
		CheckPause:    opts.CheckPause,
		FetchTimeout:  opts.FetchTimeout,
		now:           time.Now,
		sleep:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RunBatchPoll checks every monitored player in sequential batches.
//
// The returned error is ErrRunInProgress when the lock is taken (no job is
// created), or the top-level failure of a run whose summary is marked failed.
func (s *MonitorService) RunBatchPoll(ctx context.Context) (models.RunSummary, error) {
	return s.run(ctx, models.JobTypeBatchPoll, nil)
}

// RunTargetedCheck checks the given usernames one at a time. A nil slice
// means all monitored players; an empty non-nil slice checks nobody.
func (s *MonitorService) RunTargetedCheck(ctx context.Context, usernames []string) (models.RunSummary, error) {
	if usernames != nil {
		usernames = utils.NormalizeUsernames(usernames)
	}
	return s.run(ctx, models.JobTypePlayerCheck, usernames)
}

func (s *MonitorService) run(ctx context.Context, jobType models.JobType, targets []string) (summary models.RunSummary, err error) {
	// runs outlive the trigger request
	ctx = context.WithoutCancel(ctx)

	release, ok, lockErr := s.Lock.TryAcquire(ctx)
	if lockErr != nil {
		return models.RunSummary{JobType: jobType, Errors: []string{}}, lockErr
	}
	if !ok {
		logging.Info().Str("job_type", string(jobType)).Msg("[MONITOR] Run already in progress, skipping")
		return models.RunSummary{JobType: jobType, Errors: []string{}}, ErrRunInProgress
	}
	defer release()

	start := s.now()
	summary = models.RunSummary{
		JobID:   s.Jobs.Begin(ctx, jobType),
		JobType: jobType,
		Status:  models.JobStatusRunning,
		Errors:  []string{},
	}
	logging.Info().Str("job_id", summary.JobID).Str("job_type", string(jobType)).Msg("[MONITOR] 🚀 Run started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run aborted by panic: %v", r)
		}
		s.finish(ctx, &summary, start, err)
	}()

	usernames := targets
	if usernames == nil {
		usernames, err = s.Subscriptions.ListDistinctMonitoredUsernames(ctx)
		if err != nil {
			return summary, fmt.Errorf("list monitored players: %w", err)
		}
		usernames = utils.NormalizeUsernames(usernames)
	}

	if len(usernames) == 0 {
		return summary, nil
	}

	switch jobType {
	case models.JobTypeBatchPoll:
		for i, batch := range chunkUsernames(usernames, s.BatchSize) {
			s.runBatch(ctx, i+1, batch, &summary)
		}
	default:
		for i, username := range usernames {
			if i > 0 {
				s.sleep(ctx, s.CheckPause)
			}
			s.checkAndRecord(ctx, username, &summary)
		}
	}

	return summary, nil
}

func (s *MonitorService) finish(ctx context.Context, summary *models.RunSummary, start time.Time, runErr error) {
	summary.DurationMs = s.now().Sub(start).Milliseconds()
	summary.Status = models.JobStatusCompleted
	errMsg := ""
	if runErr != nil {
		summary.Status = models.JobStatusFailed
		errMsg = runErr.Error()
	}

	s.Jobs.Complete(ctx, summary.JobID, *summary, summary.Status, errMsg)

	jobType := string(summary.JobType)
	metrics.RunsTotal.WithLabelValues(jobType, string(summary.Status)).Inc()
	metrics.RunDuration.WithLabelValues(jobType).Observe(float64(summary.DurationMs) / 1000)
	if n := len(summary.Errors); n > 0 {
		metrics.PlayerErrors.WithLabelValues(jobType).Add(float64(n))
	}

	event := logging.Info()
	if runErr != nil {
		event = logging.Error().Err(runErr)
	}
	event.
		Str("job_id", summary.JobID).
		Str("job_type", jobType).
		Str("status", string(summary.Status)).
		Int("players_checked", summary.PlayersChecked).
		Int("notifications_sent", summary.NotificationsSent).
		Int("errors", len(summary.Errors)).
		Int64("duration_ms", summary.DurationMs).
		Msg("[MONITOR] Run finished")
}

// runBatch isolates a batch: anything escaping it is recorded and the next
// batch still runs. Player checks recover on their own, so this only guards
// the pause before the batch and the loop bookkeeping.
func (s *MonitorService) runBatch(ctx context.Context, n int, batch []string, summary *models.RunSummary) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Int("batch", n).Interface("panic", r).Msg("[MONITOR] Batch aborted")
			summary.Errors = append(summary.Errors, fmt.Sprintf("batch %d: %v", n, r))
		}
	}()

	if n > 1 {
		s.sleep(ctx, s.BatchPause)
	}

	logging.Debug().Int("batch", n).Int("size", len(batch)).Msg("[MONITOR] Processing batch")
	for _, username := range batch {
		s.checkAndRecord(ctx, username, summary)
	}
}

func (s *MonitorService) checkAndRecord(ctx context.Context, username string, summary *models.RunSummary) {
	res, err := s.checkPlayer(ctx, username)
	if err != nil {
		logging.Warn().Err(err).Str("username", username).Msg("[MONITOR] Player check failed")
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", username, err))
		return
	}
	summary.PlayersChecked++
	summary.NotificationsSent += res.notificationsSent
	summary.Errors = append(summary.Errors, res.errors...)
	metrics.PlayersChecked.Inc()
}

type playerResult struct {
	notificationsSent int
	errors            []string
}

// checkPlayer is the per-username unit of work. An error means the player
// was not counted as checked.
func (s *MonitorService) checkPlayer(ctx context.Context, username string) (res playerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	fetched, err := s.fetch(ctx, username)
	if err != nil {
		return res, fmt.Errorf("fetch status: %w", err)
	}

	previous, err := s.Statuses.Get(ctx, username)
	if err != nil {
		return res, fmt.Errorf("load previous status: %w", err)
	}

	transition := ClassifyTransition(previous, *fetched)

	if err := s.Statuses.Upsert(ctx, s.nextStatus(username, previous, *fetched)); err != nil {
		return res, fmt.Errorf("save status: %w", err)
	}

	event := transition.Event(*fetched)
	if event == nil {
		return res, nil
	}

	logging.Info().Str("username", username).Str("event", string(event.Type())).Msg("[MONITOR] ♟️ Transition detected")
	dispatch, err := s.Dispatcher.NotifySubscribers(ctx, username, event)
	res.notificationsSent = dispatch.Attempted
	res.errors = dispatch.Errors
	if err != nil {
		res.errors = append(res.errors, fmt.Sprintf("%s: %v", username, err))
	}
	return res, nil
}

func (s *MonitorService) fetch(ctx context.Context, username string) (*FetchedStatus, error) {
	if s.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()
	}
	return s.Source.FetchStatus(ctx, username)
}

// nextStatus builds the row to persist. LastSeen only moves forward and is
// kept from the previous row when the fetch has nothing newer.
func (s *MonitorService) nextStatus(username string, previous *models.PlayerStatus, fetched FetchedStatus) *models.PlayerStatus {
	now := s.now().UTC()
	next := &models.PlayerStatus{
		Username:    username,
		IsOnline:    fetched.IsOnline,
		IsPlaying:   fetched.IsPlaying,
		LastChecked: now,
		UpdatedAt:   now,
	}
	if fetched.IsPlaying {
		next.CurrentGameURL = fetched.CurrentGameURL
	}

	var candidate *time.Time
	if fetched.IsOnline {
		candidate = fetched.LastSeen
		if candidate == nil {
			candidate = &now
		}
	}

	switch {
	case candidate != nil && (previous == nil || previous.LastSeen == nil || candidate.After(*previous.LastSeen)):
		next.LastSeen = candidate
	case previous != nil:
		next.LastSeen = previous.LastSeen
	}
	return next
}

func chunkUsernames(usernames []string, size int) [][]string {
	if size <= 0 {
		size = len(usernames)
	}
	batches := make([][]string, 0, (len(usernames)+size-1)/size)
	for start := 0; start < len(usernames); start += size {
		end := start + size
		if end > len(usernames) {
			end = len(usernames)
		}
		batches = append(batches, usernames[start:end])
	}
	return batches
}
