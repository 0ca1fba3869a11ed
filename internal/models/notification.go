package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType is the reason a message was sent
type NotificationType string

const (
	NotificationManual    NotificationType = "manual"
	NotificationReminder  NotificationType = "reminder"
	NotificationScheduled NotificationType = "scheduled"
)

// NotificationStatus is the delivery outcome of one attempt
type NotificationStatus string

const (
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
	StatusPending NotificationStatus = "pending"
)

// Notification records one delivery attempt. Rows are append-only.
type Notification struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	FridayNumber     int                `gorm:"not null;index" json:"friday_number"`
	RecipientName    string             `gorm:"size:255;not null;index" json:"recipient_name"`
	RecipientChatID  string             `gorm:"size:64;not null" json:"recipient_chat_id"`
	MessageText      string             `gorm:"type:text;not null" json:"message_text"`
	NotificationType NotificationType   `gorm:"size:16;not null" json:"notification_type"`
	Status           NotificationStatus `gorm:"size:16;not null;index" json:"status"`
	ErrorMessage     *string            `gorm:"type:text" json:"error_message,omitempty"`
	SentAt           *time.Time         `json:"sent_at"`
	CreatedAt        time.Time          `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate fills the creation time
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return nil
}

// DispatchRun is the summary of one reminder dispatch over a Friday
type DispatchRun struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	FridayNumber     int              `gorm:"not null;index" json:"friday_number"`
	NotificationType NotificationType `gorm:"size:16;not null" json:"notification_type"`
	Total            int              `gorm:"not null" json:"total"`
	Sent             int              `gorm:"not null" json:"sent"`
	Failed           int              `gorm:"not null" json:"failed"`
	Errors           datatypes.JSON   `json:"errors"`
	Aborted          bool             `gorm:"not null;default:false" json:"aborted"`
	StartedAt        time.Time        `gorm:"not null" json:"started_at"`
	FinishedAt       time.Time        `gorm:"not null;index" json:"finished_at"`
}

// DispatchRequest triggers a manual reminder dispatch
type DispatchRequest struct {
	FridayNumber int `json:"friday_number" binding:"omitempty,min=1"`
}

// BroadcastRequest sends a custom message to linked participants
type BroadcastRequest struct {
	Message      string `json:"message" binding:"required,max=4000"`
	AdminsOnly   bool   `json:"admins_only"`
	FridayNumber int    `json:"friday_number" binding:"omitempty,min=1"`
}
