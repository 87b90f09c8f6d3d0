// models/notification_log.go
package models

import "time"

// NotificationLogEntry records a single delivery attempt. Append-only; it is
// also the lookup source for the dedup window.
type NotificationLogEntry struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string    `gorm:"type:varchar(64);not null;index:idx_notification_dedup,priority:1" json:"user_id"`
	Username     string    `gorm:"type:varchar(64);not null;index:idx_notification_dedup,priority:2" json:"username"`
	EventType    EventType `gorm:"column:notification_type;type:varchar(32);not null;index:idx_notification_dedup,priority:3" json:"notification_type"`
	SentAt       time.Time `gorm:"not null;index:idx_notification_dedup,priority:4" json:"sent_at"`
	Delivered    bool      `gorm:"not null;default:false" json:"delivered"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
}

func (NotificationLogEntry) TableName() string {
	return "notification_log"
}
