package models

import "time"

// SlotCount is the number of participants sharing one reading record
const SlotCount = 3

// Reading is the assignment and completion record of one group for one Friday.
// JuzNumber is the unit of slot 1; the other slots follow the rotation.
type Reading struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	FridayNumber int  `gorm:"not null;index;uniqueIndex:idx_reading_friday_group" json:"friday_number"`
	JuzNumber    int  `gorm:"not null" json:"juz_number"`
	KhatmaNumber int  `gorm:"not null" json:"khatma_number"`
	GroupNumber  int  `gorm:"not null;index;uniqueIndex:idx_reading_friday_group" json:"group_number"`

	Person1ID     *uint      `gorm:"index" json:"person1_id"`
	Person1Name   string     `gorm:"size:255;not null;default:'';index" json:"person1_name"`
	Person1Status bool       `gorm:"not null;default:false" json:"person1_status"`
	Person1Date   *time.Time `json:"person1_date"`

	Person2ID     *uint      `gorm:"index" json:"person2_id"`
	Person2Name   string     `gorm:"size:255;not null;default:'';index" json:"person2_name"`
	Person2Status bool       `gorm:"not null;default:false" json:"person2_status"`
	Person2Date   *time.Time `json:"person2_date"`

	Person3ID     *uint      `gorm:"index" json:"person3_id"`
	Person3Name   string     `gorm:"size:255;not null;default:'';index" json:"person3_name"`
	Person3Status bool       `gorm:"not null;default:false" json:"person3_status"`
	Person3Date   *time.Time `json:"person3_date"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Slot is a read-only view of one participant position in a reading
type Slot struct {
	Position    int        `json:"position"`
	PersonID    *uint      `json:"person_id"`
	Name        string     `json:"name"`
	Done        bool       `json:"done"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Slots returns the three positions in order
func (r *Reading) Slots() [SlotCount]Slot {
	return [SlotCount]Slot{
		{Position: 1, PersonID: r.Person1ID, Name: r.Person1Name, Done: r.Person1Status, CompletedAt: r.Person1Date},
		{Position: 2, PersonID: r.Person2ID, Name: r.Person2Name, Done: r.Person2Status, CompletedAt: r.Person2Date},
		{Position: 3, PersonID: r.Person3ID, Name: r.Person3Name, Done: r.Person3Status, CompletedAt: r.Person3Date},
	}
}

// PositionOf returns the 1-based slot holding name, or 0
func (r *Reading) PositionOf(name string) int {
	if name == "" {
		return 0
	}
	for _, s := range r.Slots() {
		if s.Name == name {
			return s.Position
		}
	}
	return 0
}

// Has reports whether name occupies any slot
func (r *Reading) Has(name string) bool {
	return r.PositionOf(name) != 0
}

// SlotFor returns the slot of name
func (r *Reading) SlotFor(name string) (Slot, bool) {
	pos := r.PositionOf(name)
	if pos == 0 {
		return Slot{}, false
	}
	return r.Slots()[pos-1], true
}

// SetSlot assigns a participant to a position
func (r *Reading) SetSlot(position int, personID *uint, name string) {
	switch position {
	case 1:
		r.Person1ID, r.Person1Name = personID, name
	case 2:
		r.Person2ID, r.Person2Name = personID, name
	case 3:
		r.Person3ID, r.Person3Name = personID, name
	}
}

// MarkSlot sets the completion state of a position in memory
func (r *Reading) MarkSlot(position int, done bool, at *time.Time) {
	if !done {
		at = nil
	}
	switch position {
	case 1:
		r.Person1Status, r.Person1Date = done, at
	case 2:
		r.Person2Status, r.Person2Date = done, at
	case 3:
		r.Person3Status, r.Person3Date = done, at
	}
}

// SlotColumns returns the id, name, status and date column names of a position
func SlotColumns(position int) (id, name, status, date string) {
	switch position {
	case 1:
		return "person1_id", "person1_name", "person1_status", "person1_date"
	case 2:
		return "person2_id", "person2_name", "person2_status", "person2_date"
	case 3:
		return "person3_id", "person3_name", "person3_status", "person3_date"
	}
	return "", "", "", ""
}

// ValidPosition reports whether position is a slot index
func ValidPosition(position int) bool {
	return position >= 1 && position <= SlotCount
}

// UpdateSlotRequest toggles the completion state of one slot
type UpdateSlotRequest struct {
	Done bool `json:"done"`
}

// GenerateReadingsRequest controls bulk creation of a Friday's records
type GenerateReadingsRequest struct {
	FirstFriday int `json:"first_friday" binding:"omitempty,min=1"`
}
