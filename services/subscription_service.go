// services/subscription_service.go
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"player-monitor-system/models"
)

// SubscriptionService reads the subscription, preference and user tables
// owned by the account services.
type SubscriptionService struct {
	DB *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{DB: db}
}

// ListDistinctMonitoredUsernames returns every username with at least one
// active subscription, ordered for a stable walk.
func (s *SubscriptionService) ListDistinctMonitoredUsernames(ctx context.Context) ([]string, error) {
	names := []string{}
	err := s.DB.WithContext(ctx).Raw(
		`SELECT DISTINCT LOWER(username) AS username
		   FROM subscriptions
		  WHERE is_active = ? AND deleted_at IS NULL
		  ORDER BY username`, true,
	).Scan(&names).Error
	return names, err
}

func (s *SubscriptionService) ListSubscriberUserIDs(ctx context.Context, username string) ([]string, error) {
	ids := []string{}
	err := s.DB.WithContext(ctx).Model(&models.Subscription{}).
		Where("LOWER(username) = ? AND is_active = ?", username, true).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// GetPreferences returns nil, nil when the user never saved preferences.
func (s *SubscriptionService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// GetUser resolves the account used to address e-mails.
func (s *SubscriptionService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
