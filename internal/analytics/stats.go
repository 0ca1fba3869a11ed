package analytics

import (
	"sort"

	"khatma/internal/models"
)

// Friday status labels
const (
	StatusExcellent     = "ممتازة"
	StatusGood          = "جيدة"
	StatusNeedsFollowUp = "تحتاج متابعة"
)

// FridayStats is the completion summary of one Friday
type FridayStats struct {
	FridayNumber int    `json:"friday_number"`
	Date         string `json:"date,omitempty"`
	Completed    int    `json:"completed"`
	Pending      int    `json:"pending"`
	Total        int    `json:"total"`
	Percentage   int    `json:"percentage"`
	Status       string `json:"status"`
}

// Reader is one line of the leaderboard
type Reader struct {
	Name       string `json:"name"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// StatusLabel maps a completion percentage to its label
func StatusLabel(percentage int) string {
	switch {
	case percentage >= 80:
		return StatusExcellent
	case percentage >= 60:
		return StatusGood
	default:
		return StatusNeedsFollowUp
	}
}

// StatsForFriday counts every slot of the Friday's readings, assigned or not
func StatsForFriday(readings []models.Reading, fridayNumber int) FridayStats {
	s := FridayStats{FridayNumber: fridayNumber}
	for i := range readings {
		if readings[i].FridayNumber != fridayNumber {
			continue
		}
		for _, slot := range readings[i].Slots() {
			s.Total++
			if slot.Done {
				s.Completed++
			}
		}
	}
	return finish(s)
}

// StatsForFridays returns one entry per Friday, in the order given
func StatsForFridays(fridays []models.Friday, readings []models.Reading) []FridayStats {
	byFriday := make(map[int]*FridayStats, len(fridays))
	for i := range readings {
		r := &readings[i]
		s, ok := byFriday[r.FridayNumber]
		if !ok {
			s = &FridayStats{FridayNumber: r.FridayNumber}
			byFriday[r.FridayNumber] = s
		}
		for _, slot := range r.Slots() {
			s.Total++
			if slot.Done {
				s.Completed++
			}
		}
	}

	out := make([]FridayStats, 0, len(fridays))
	for _, f := range fridays {
		s := FridayStats{FridayNumber: f.FridayNumber}
		if agg, ok := byFriday[f.FridayNumber]; ok {
			s = *agg
		}
		s.Date = f.Date.Format(models.DateOnly)
		out = append(out, finish(s))
	}
	return out
}

// TopReaders ranks assigned participants by percentage, then completed count
func TopReaders(readings []models.Reading, limit int) []Reader {
	order := make([]string, 0)
	stats := make(map[string]*Reader)
	for i := range readings {
		for _, slot := range readings[i].Slots() {
			if slot.Name == "" {
				continue
			}
			r, ok := stats[slot.Name]
			if !ok {
				r = &Reader{Name: slot.Name}
				stats[slot.Name] = r
				order = append(order, slot.Name)
			}
			r.Total++
			if slot.Done {
				r.Completed++
			}
		}
	}

	out := make([]Reader, 0, len(order))
	for _, name := range order {
		r := stats[name]
		r.Percentage = Percent(r.Completed, r.Total)
		out = append(out, *r)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Percentage != out[b].Percentage {
			return out[a].Percentage > out[b].Percentage
		}
		return out[a].Completed > out[b].Completed
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func finish(s FridayStats) FridayStats {
	s.Pending = s.Total - s.Completed
	s.Percentage = Percent(s.Completed, s.Total)
	s.Status = StatusLabel(s.Percentage)
	return s
}
