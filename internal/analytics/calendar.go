package analytics

import (
	"time"

	"khatma/internal/models"
)

// CurrentFriday returns the earliest Friday dated today or later in loc,
// or the latest Friday once all of them have passed. fridays must be
// ordered by number.
func CurrentFriday(fridays []models.Friday, now time.Time, loc *time.Location) (models.Friday, bool) {
	if len(fridays) == 0 {
		return models.Friday{}, false
	}
	today := civilDate(now, loc)
	for _, f := range fridays {
		if !f.Date.Before(today) {
			return f, true
		}
	}
	return fridays[len(fridays)-1], true
}

// NextFriday returns the Friday numbered right after number
func NextFriday(fridays []models.Friday, number int) (models.Friday, bool) {
	for _, f := range fridays {
		if f.FridayNumber > number {
			return f, true
		}
	}
	return models.Friday{}, false
}

// civilDate is midnight UTC of now's calendar day in loc
func civilDate(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
