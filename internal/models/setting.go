package models

import (
	"fmt"
	"strconv"
	"time"
)

// Setting keys
const (
	SettingAutoReminders = "auto_reminders_enabled"
	SettingCurrentFriday = "current_friday_number"
)

// Setting is a flat key/value operational toggle. Last write wins.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// SetSettingRequest upserts a setting value
type SetSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

// ValidateSetting checks the value of a known key. Unknown keys accept any value.
func ValidateSetting(key, value string) error {
	switch key {
	case SettingAutoReminders:
		if value != "true" && value != "false" {
			return fmt.Errorf("%s must be true or false", key)
		}
	case SettingCurrentFriday:
		if n, err := strconv.Atoi(value); err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive friday number", key)
		}
	}
	return nil
}
