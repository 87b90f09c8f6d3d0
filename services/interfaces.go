// services/interfaces.go
package services

import (
	"context"
	"time"

	"player-monitor-system/models"
)

// FetchedStatus is a fresh observation from the status source.
type FetchedStatus struct {
	Username       string
	IsOnline       bool
	IsPlaying      bool
	CurrentGameURL *string
	TimeControl    string // of the current game
	LastSeen       *time.Time
	// Result of the most recently finished game, if the source knows it.
	Result string
}

// SubscriptionSource resolves who watches whom. Backed by the subscriptions table.
type SubscriptionSource interface {
	ListDistinctMonitoredUsernames(ctx context.Context) ([]string, error)
	ListSubscriberUserIDs(ctx context.Context, username string) ([]string, error)
}

// PreferenceSource returns nil, nil when the user has no preferences row.
type PreferenceSource interface {
	GetPreferences(ctx context.Context, userID string) (*models.NotificationPreference, error)
}

type StatusSource interface {
	FetchStatus(ctx context.Context, username string) (*FetchedStatus, error)
}

// EmailContext carries the template fields for a notification e-mail.
type EmailContext struct {
	PlayerName  string
	GameURL     string
	TimeControl string
	Result      string
}

type EmailResult struct {
	Delivered bool
	Error     string
}

// EmailSender never returns a Go error; failures come back as Delivered=false.
type EmailSender interface {
	Send(ctx context.Context, userID string, event models.PlayerEvent, ec EmailContext) EmailResult
}

// PlayerStatusStore returns nil, nil from Get when the player was never observed.
type PlayerStatusStore interface {
	Get(ctx context.Context, username string) (*models.PlayerStatus, error)
	Upsert(ctx context.Context, status *models.PlayerStatus) error
}

type NotificationLogStore interface {
	ExistsSince(ctx context.Context, userID, username string, eventType models.EventType, since time.Time) (bool, error)
	Insert(ctx context.Context, entry *models.NotificationLogEntry) error
}

type JobStore interface {
	Insert(ctx context.Context, job *models.MonitoringJob) error
	// Finish updates the job only while it is still running and reports
	// whether a row was changed.
	Finish(ctx context.Context, job *models.MonitoringJob) (bool, error)
	List(ctx context.Context, limit int) ([]models.MonitoringJob, error)
	Get(ctx context.Context, id string) (*models.MonitoringJob, error)
}
