// Package analytics derives streaks, completion rates and rankings from the
// completion log. The reducers in this file are pure and single pass over
// the records they are given.
package analytics

import (
	"math"
	"sort"
	"time"

	"khatma/internal/models"
)

// Completion is one completed slot of a participant
type Completion struct {
	FridayNumber int       `json:"friday_number"`
	GroupNumber  int       `json:"group_number"`
	JuzNumber    int       `json:"juz_number"`
	Position     int       `json:"position"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Rank is a 1-based position among Size participants. The zero value means unranked.
type Rank struct {
	Rank int `json:"rank"`
	Size int `json:"size"`
}

// Percent returns round(100 * part / total), or 0 when total is 0
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// Counts returns how many of name's slots are completed out of all their slots
func Counts(readings []models.Reading, name string) (completed, total int) {
	for i := range readings {
		slot, ok := readings[i].SlotFor(name)
		if !ok {
			continue
		}
		total++
		if slot.Done {
			completed++
		}
	}
	return completed, total
}

// CompletionRate is the rounded percentage of name's records that are completed
func CompletionRate(readings []models.Reading, name string) int {
	completed, total := Counts(readings, name)
	return Percent(completed, total)
}

// Streak counts consecutive completed Fridays starting from name's most recent
// record. It stops at the first incomplete record or the first missing Friday.
func Streak(readings []models.Reading, name string) int {
	mine := make([]models.Slot, 0)
	fridays := make([]int, 0)
	for i := range readings {
		if slot, ok := readings[i].SlotFor(name); ok {
			mine = append(mine, slot)
			fridays = append(fridays, readings[i].FridayNumber)
		}
	}

	idx := make([]int, len(mine))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return fridays[idx[a]] > fridays[idx[b]] })

	streak := 0
	prev := 0
	for _, i := range idx {
		if !mine[i].Done {
			break
		}
		if streak > 0 && fridays[i] != prev-1 {
			break
		}
		streak++
		prev = fridays[i]
	}
	return streak
}

// PendingCount counts name's records that are not completed
func PendingCount(readings []models.Reading, name string) int {
	completed, total := Counts(readings, name)
	return total - completed
}

// LastCompleted returns name's completed slot on the latest Friday
func LastCompleted(readings []models.Reading, name string) (Completion, bool) {
	var best Completion
	found := false
	for i := range readings {
		r := &readings[i]
		slot, ok := r.SlotFor(name)
		if !ok || !slot.Done {
			continue
		}
		if found && r.FridayNumber <= best.FridayNumber {
			continue
		}
		best = completionOf(r, slot)
		found = true
	}
	return best, found
}

// NextPending returns name's earliest incomplete reading on or after fromFriday
func NextPending(readings []models.Reading, name string, fromFriday int) (models.Reading, bool) {
	var best models.Reading
	found := false
	for i := range readings {
		r := readings[i]
		if r.FridayNumber < fromFriday {
			continue
		}
		slot, ok := r.SlotFor(name)
		if !ok || slot.Done {
			continue
		}
		if !found || r.FridayNumber < best.FridayNumber {
			best = r
			found = true
		}
	}
	return best, found
}

// GroupRank ranks name within the group of their earliest record by completed
// slots. Ties keep the order in which members first appear.
func GroupRank(readings []models.Reading, name string) Rank {
	group, earliest := 0, math.MaxInt
	for i := range readings {
		if readings[i].Has(name) && readings[i].FridayNumber < earliest {
			group, earliest = readings[i].GroupNumber, readings[i].FridayNumber
		}
	}
	if group == 0 {
		return Rank{}
	}

	inGroup := make([]models.Reading, 0)
	for i := range readings {
		if readings[i].GroupNumber == group {
			inGroup = append(inGroup, readings[i])
		}
	}
	return rankAmong(inGroup, name)
}

// GlobalRank ranks name across the whole log by completed slots
func GlobalRank(readings []models.Reading, name string) Rank {
	return rankAmong(readings, name)
}

func rankAmong(readings []models.Reading, name string) Rank {
	order := make([]string, 0)
	scores := make(map[string]int)
	for i := range readings {
		for _, slot := range readings[i].Slots() {
			if slot.Name == "" {
				continue
			}
			if _, seen := scores[slot.Name]; !seen {
				order = append(order, slot.Name)
				scores[slot.Name] = 0
			}
			if slot.Done {
				scores[slot.Name]++
			}
		}
	}
	if _, ok := scores[name]; !ok {
		return Rank{}
	}

	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	for i, n := range order {
		if n == name {
			return Rank{Rank: i + 1, Size: len(order)}
		}
	}
	return Rank{}
}

// FirstInGroup returns who completed first within one group on a Friday
func FirstInGroup(readings []models.Reading, fridayNumber, groupNumber int) (string, bool) {
	return earliest(readings, func(r *models.Reading) bool {
		return r.FridayNumber == fridayNumber && r.GroupNumber == groupNumber
	})
}

// FirstOverall returns who completed first across all groups on a Friday
func FirstOverall(readings []models.Reading, fridayNumber int) (string, bool) {
	return earliest(readings, func(r *models.Reading) bool {
		return r.FridayNumber == fridayNumber
	})
}

func earliest(readings []models.Reading, match func(*models.Reading) bool) (string, bool) {
	var (
		name string
		at   time.Time
	)
	for i := range readings {
		r := &readings[i]
		if !match(r) {
			continue
		}
		for _, slot := range r.Slots() {
			if !slot.Done || slot.CompletedAt == nil || slot.Name == "" {
				continue
			}
			if name == "" || slot.CompletedAt.Before(at) {
				name, at = slot.Name, *slot.CompletedAt
			}
		}
	}
	return name, name != ""
}

func completionOf(r *models.Reading, slot models.Slot) Completion {
	c := Completion{
		FridayNumber: r.FridayNumber,
		GroupNumber:  r.GroupNumber,
		JuzNumber:    r.JuzNumber,
		Position:     slot.Position,
	}
	if slot.CompletedAt != nil {
		c.CompletedAt = *slot.CompletedAt
	}
	return c
}
