package models

import "time"

// Friday is one numbered cycle of the khatma with its calendar date.
// Date is stored as midnight UTC of the calendar day.
type Friday struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FridayNumber int       `gorm:"not null;uniqueIndex" json:"friday_number"`
	Date         time.Time `gorm:"not null;index" json:"date"`
	DateHijri    string    `gorm:"size:32" json:"date_hijri"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// DateOnly is the layout used for Friday dates on the wire
const DateOnly = time.DateOnly

// CreateFridayRequest represents the data needed to add a Friday
type CreateFridayRequest struct {
	FridayNumber int    `json:"friday_number" binding:"required,min=1"`
	Date         string `json:"date" binding:"required,datetime=2006-01-02"`
	DateHijri    string `json:"date_hijri" binding:"max=32"`
}

// UpdateFridayRequest corrects the date of an existing Friday
type UpdateFridayRequest struct {
	Date      string  `json:"date" binding:"required,datetime=2006-01-02"`
	DateHijri *string `json:"date_hijri" binding:"omitempty,max=32"`
}

// ParseDate parses a YYYY-MM-DD string into the stored representation
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateOnly, s, time.UTC)
}
