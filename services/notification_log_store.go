// services/notification_log_store.go
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"player-monitor-system/models"
)

type NotificationLog struct {
	DB *gorm.DB
}

func NewNotificationLog(db *gorm.DB) *NotificationLog {
	return &NotificationLog{DB: db}
}

// ExistsSince reports whether any attempt (delivered or not) was logged for
// this user, player and event at or after since.
func (s *NotificationLog) ExistsSince(ctx context.Context, userID, username string, eventType models.EventType, since time.Time) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.NotificationLogEntry{}).
		Where("user_id = ? AND username = ? AND notification_type = ? AND sent_at >= ?",
			userID, username, eventType, since.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *NotificationLog) Insert(ctx context.Context, entry *models.NotificationLogEntry) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}
