// models/subscription.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription links a user to a monitored username.
// Owned by the subscription service; this service only reads it.
type Subscription struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID   string `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Username string `gorm:"type:varchar(64);not null;index" json:"username"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	Timestamps
}

type NotificationFrequency string

const (
	FrequencyImmediate NotificationFrequency = "immediate"
	FrequencyDigest    NotificationFrequency = "digest"
	FrequencyDisabled  NotificationFrequency = "disabled"
)

// NotificationPreference mirrors the preferences service's per-user settings (read-only).
type NotificationPreference struct {
	UserID             string                `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	EmailNotifications bool                  `gorm:"not null;default:true" json:"email_notifications"`
	Frequency          NotificationFrequency `gorm:"column:notification_frequency;type:varchar(16);not null;default:'immediate'" json:"notification_frequency"`
	UpdatedAt          time.Time             `json:"updated_at" gorm:"autoUpdateTime"`
}

func (NotificationPreference) TableName() string {
	return "user_preferences"
}

// AllowsEmail reports whether a genuine transition may be e-mailed to this user.
func (p *NotificationPreference) AllowsEmail() bool {
	return p != nil && p.EmailNotifications && p.Frequency != FrequencyDisabled
}

// User is the slice of the account record needed to address an e-mail (read-only).
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email       string `gorm:"not null" json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
