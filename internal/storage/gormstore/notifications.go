package gormstore

import (
	"context"

	"gorm.io/gorm/clause"

	"khatma/internal/models"
)

const defaultListLimit = 100

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate("create notification", s.db.WithContext(ctx).Create(n).Error)
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []models.Notification
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, translate("list notifications", err)
}

func (s *Store) CreateDispatchRun(ctx context.Context, run *models.DispatchRun) error {
	return translate("create dispatch run", s.db.WithContext(ctx).Create(run).Error)
}

func (s *Store) ListDispatchRuns(ctx context.Context, limit int) ([]models.DispatchRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []models.DispatchRun
	err := s.db.WithContext(ctx).Order("finished_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, translate("list dispatch runs", err)
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	if err := s.db.WithContext(ctx).Where(&models.Setting{Key: key}).First(&setting).Error; err != nil {
		return "", translate("get setting", err)
	}
	return setting.Value, nil
}

// SetSetting upserts a setting, last write wins
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	return translate("set setting", err)
}
