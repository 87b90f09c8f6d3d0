// models/player_status.go
package models

import "time"

// PlayerStatus is the last observed live state of a monitored player.
// One row per username, overwritten by every successful poll.
type PlayerStatus struct {
	Username       string     `gorm:"primaryKey;type:varchar(64)" json:"username"`
	IsOnline       bool       `gorm:"not null;default:false" json:"is_online"`
	IsPlaying      bool       `gorm:"not null;default:false" json:"is_playing"`
	CurrentGameURL *string    `gorm:"type:text" json:"current_game_url,omitempty"`
	LastSeen       *time.Time `json:"last_seen,omitempty"` // only set while online
	LastChecked    time.Time  `gorm:"not null" json:"last_checked"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (PlayerStatus) TableName() string {
	return "player_status"
}
