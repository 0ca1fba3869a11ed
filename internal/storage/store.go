// Package storage defines the persistence contract of the khatma service.
package storage

import (
	"context"
	"errors"
	"time"

	"khatma/internal/models"
)

var (
	// ErrNotFound is returned when a person, Friday, reading or setting does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a unique constraint
	ErrConflict = errors.New("conflict")
	// ErrStoreUnavailable is returned when the backing database cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Persons manages participants
type Persons interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	GetPerson(ctx context.Context, id uint) (*models.Person, error)
	// FindPersonsByName returns every person whose name equals name exactly
	FindPersonsByName(ctx context.Context, name string) ([]models.Person, error)
	GetPersonByChatID(ctx context.Context, chatID string) (*models.Person, error)
	ListLinkedPersons(ctx context.Context) ([]models.Person, error)
	ListAdmins(ctx context.Context) ([]models.Person, error)
	CreatePerson(ctx context.Context, p *models.Person) error
	// RenamePerson changes the name and rewrites every reading slot that holds it, atomically
	RenamePerson(ctx context.Context, id uint, newName string) error
	UpdatePersonGroup(ctx context.Context, id uint, groupNumber int) error
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
	// LinkChat binds a Telegram chat to the person. Returns ErrConflict if the chat belongs to someone else.
	LinkChat(ctx context.Context, id uint, chatID string, username *string) error
	// DeletePerson removes the person and every reading they appear in
	DeletePerson(ctx context.Context, id uint) error
}

// Fridays manages the numbered cycles
type Fridays interface {
	// ListFridays returns all Fridays ordered by number
	ListFridays(ctx context.Context) ([]models.Friday, error)
	GetFriday(ctx context.Context, number int) (*models.Friday, error)
	CreateFridays(ctx context.Context, fridays []models.Friday) error
	UpdateFridayDate(ctx context.Context, number int, date time.Time, hijri *string) error
}

// Readings manages assignment and completion records
type Readings interface {
	AllReadings(ctx context.Context) ([]models.Reading, error)
	GetReading(ctx context.Context, id uint) (*models.Reading, error)
	// ReadingsForFriday returns a Friday's readings ordered by group
	ReadingsForFriday(ctx context.Context, fridayNumber int) ([]models.Reading, error)
	// ReadingsForPerson returns every reading with name in any slot, ordered by Friday
	ReadingsForPerson(ctx context.Context, name string) ([]models.Reading, error)
	// SearchReadings matches term as a substring of any slot name
	SearchReadings(ctx context.Context, term string) ([]models.Reading, error)
	CreateReadings(ctx context.Context, readings []models.Reading) error
	// SetSlotStatus sets the completion flag of one slot; at is ignored when done is false
	SetSlotStatus(ctx context.Context, readingID uint, position int, done bool, at time.Time) error
}

// Notifications keeps the delivery log
type Notifications interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	CreateDispatchRun(ctx context.Context, run *models.DispatchRun) error
	ListDispatchRuns(ctx context.Context, limit int) ([]models.DispatchRun, error)
}

// Settings is the key/value store for operational toggles
type Settings interface {
	// GetSetting returns ErrNotFound for unknown keys
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Store is the full persistence contract
type Store interface {
	Persons
	Fridays
	Readings
	Notifications
	Settings

	Ping(ctx context.Context) error
}
