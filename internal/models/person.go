package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Person is a participant of the khatma. Name is the display name shown in
// readings; ID is the stable key readings are joined on.
type Person struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"size:255;not null;index" json:"name"`
	GroupNumber      int       `gorm:"not null;default:0;index" json:"group_number"`
	TelegramChatID   *string   `gorm:"size:64;uniqueIndex" json:"telegram_chat_id"`
	TelegramUsername *string   `gorm:"size:64" json:"telegram_username"`
	IsAdmin          bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeSave trims the display name so exact-match lookups stay predictable
func (p *Person) BeforeSave(tx *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	return nil
}

// IsLinked reports whether the person has a Telegram chat bound
func (p *Person) IsLinked() bool {
	return p.TelegramChatID != nil && *p.TelegramChatID != ""
}

// CreatePersonRequest represents the data needed to add a participant
type CreatePersonRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	GroupNumber int    `json:"group_number" binding:"min=0,max=60"`
}

// UpdatePersonRequest renames a participant and/or moves them to another group
type UpdatePersonRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	GroupNumber *int    `json:"group_number" binding:"omitempty,min=0,max=60"`
}

// SetAdminRequest toggles the administrator flag
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// LoginRequest carries the Google ID token of an administrator
type LoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}
