// services/status_store.go
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"player-monitor-system/models"
)

type StatusStore struct {
	DB *gorm.DB
}

func NewStatusStore(db *gorm.DB) *StatusStore {
	return &StatusStore{DB: db}
}

func (s *StatusStore) Get(ctx context.Context, username string) (*models.PlayerStatus, error) {
	var st models.PlayerStatus
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Upsert writes the full row, one per username.
func (s *StatusStore) Upsert(ctx context.Context, status *models.PlayerStatus) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_online", "is_playing", "current_game_url",
			"last_seen", "last_checked", "updated_at",
		}),
	}).Create(status).Error
}
