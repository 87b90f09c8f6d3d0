// services/notification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"player-monitor-system/logging"
	"player-monitor-system/metrics"
	"player-monitor-system/models"
)

// DispatchResult summarizes one fan-out. Attempted counts subscribers that
// reached a delivery attempt, whatever its outcome.
type DispatchResult struct {
	Attempted int
	Delivered int
	Errors    []string
}

// NotificationService fans a player event out to that player's subscribers.
type NotificationService struct {
	Subscriptions SubscriptionSource
	Preferences   PreferenceSource
	Log           NotificationLogStore
	Email         EmailSender
	DedupWindow   time.Duration

	now func() time.Time
}

func NewNotificationService(subs SubscriptionSource, prefs PreferenceSource, log NotificationLogStore, email EmailSender, dedupWindow time.Duration) *NotificationService {
	return &NotificationService{
		Subscriptions: subs,
		Preferences:   prefs,
		Log:           log,
		Email:         email,
		DedupWindow:   dedupWindow,
		now:           time.Now,
	}
}

// NotifySubscribers returns an error only for an invalid event or when the
// subscriber list cannot be read. Everything per subscriber lands in the result.
func (s *NotificationService) NotifySubscribers(ctx context.Context, username string, event models.PlayerEvent) (DispatchResult, error) {
	res := DispatchResult{Errors: []string{}}
	if event == nil {
		return res, fmt.Errorf("%w: nil event", models.ErrInvalidEventType)
	}
	eventType, err := models.ParseEventType(string(event.Type()))
	if err != nil {
		return res, err
	}

	userIDs, err := s.Subscriptions.ListSubscriberUserIDs(ctx, username)
	if err != nil {
		return res, fmt.Errorf("list subscribers: %w", err)
	}

	ec := emailContextFor(username, event)

	for _, userID := range userIDs {
		pref, err := s.Preferences.GetPreferences(ctx, userID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: preferences: %v", username, userID, err))
			continue
		}
		if !pref.AllowsEmail() {
			metrics.Notifications.WithLabelValues(string(eventType), metrics.OutcomeOptedOut).Inc()
			continue
		}

		since := s.now().Add(-s.DedupWindow)
		dup, err := s.Log.ExistsSince(ctx, userID, username, eventType, since)
		if err != nil {
			// no send without a clean dedup answer
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: dedup check: %v", username, userID, err))
			continue
		}
		if dup {
			logging.Debug().Str("username", username).Str("user_id", userID).Str("event", string(eventType)).Msg("[DISPATCH] Duplicate within window, skipped")
			metrics.Notifications.WithLabelValues(string(eventType), metrics.OutcomeDuplicate).Inc()
			continue
		}

		res.Attempted++
		result := s.Email.Send(ctx, userID, event, ec)

		entry := &models.NotificationLogEntry{
			ID:        uuid.NewString(),
			UserID:    userID,
			Username:  username,
			EventType: eventType,
			SentAt:    s.now().UTC(),
			Delivered: result.Delivered,
		}
		if result.Delivered {
			res.Delivered++
			metrics.Notifications.WithLabelValues(string(eventType), metrics.OutcomeDelivered).Inc()
		} else {
			msg := result.Error
			if msg == "" {
				msg = "unknown error"
			}
			entry.ErrorMessage = &msg
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: delivery failed: %s", username, userID, msg))
			metrics.Notifications.WithLabelValues(string(eventType), metrics.OutcomeFailed).Inc()
			logging.Warn().Str("username", username).Str("user_id", userID).Str("error", msg).Msg("[DISPATCH] Delivery failed")
		}

		if err := s.Log.Insert(ctx, entry); err != nil {
			logging.Error().Err(err).Str("username", username).Str("user_id", userID).Msg("[DISPATCH] Failed to write notification log")
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: notification log: %v", username, userID, err))
		}
	}

	logging.Info().
		Str("username", username).
		Str("event", string(eventType)).
		Int("subscribers", len(userIDs)).
		Int("attempted", res.Attempted).
		Int("delivered", res.Delivered).
		Msg("[DISPATCH] Fan-out finished")

	return res, nil
}

func emailContextFor(username string, event models.PlayerEvent) EmailContext {
	ec := EmailContext{PlayerName: username}
	switch ev := event.(type) {
	case models.GameStarted:
		ec.GameURL = ev.GameURL
		ec.TimeControl = ev.TimeControl
	case models.GameEnded:
		ec.Result = ev.Result
	}
	return ec
}
