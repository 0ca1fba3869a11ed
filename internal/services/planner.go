package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"khatma/internal/models"
	"khatma/internal/rotation"
)

// PlanStore is the persistence bulk setup writes through
type PlanStore interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	CreateReadings(ctx context.Context, readings []models.Reading) error
	CreateFridays(ctx context.Context, fridays []models.Friday) error
}

// Planner creates Fridays and their readings in bulk
type Planner struct {
	store PlanStore
	model rotation.Model
}

func NewPlanner(store PlanStore, model rotation.Model) *Planner {
	return &Planner{store: store, model: model}
}

// PlanFridays lays out count consecutive Fridays one week apart, starting
// at number first on date start
func PlanFridays(first int, start time.Time, count int) []models.Friday {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]models.Friday, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, models.Friday{
			FridayNumber: first + i,
			Date:         start.AddDate(0, 0, 7*i),
		})
	}
	return out
}

// CreateFridays stores a planned range. Existing Friday numbers conflict.
func (p *Planner) CreateFridays(ctx context.Context, first int, start time.Time, count int) ([]models.Friday, error) {
	if first < 1 || count < 1 {
		return nil, fmt.Errorf("invalid friday range: first %d, count %d", first, count)
	}
	fridays := PlanFridays(first, start, count)
	if err := p.store.CreateFridays(ctx, fridays); err != nil {
		return nil, fmt.Errorf("create fridays %d-%d: %w", first, first+count-1, err)
	}
	slog.Info("Fridays created", "first", first, "count", count)
	return fridays, nil
}

// GenerateReadings builds one reading per group for the Friday from the
// participants' group numbers. Participants without a group are skipped,
// and readings that already exist are left untouched.
func (p *Planner) GenerateReadings(ctx context.Context, fridayNumber int) ([]models.Reading, error) {
	persons, err := p.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate readings: %w", err)
	}

	groups := make(map[int][]models.Person)
	for _, person := range persons {
		if person.GroupNumber < 1 {
			continue
		}
		groups[person.GroupNumber] = append(groups[person.GroupNumber], person)
	}
	numbers := make([]int, 0, len(groups))
	for n := range groups {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	readings := make([]models.Reading, 0, len(numbers))
	for _, n := range numbers {
		members := groups[n]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		r, err := p.model.Build(fridayNumber, n, members)
		if err != nil {
			return nil, fmt.Errorf("generate readings for friday %d: %w", fridayNumber, err)
		}
		readings = append(readings, r)
	}
	if len(readings) == 0 {
		return readings, nil
	}

	if err := p.store.CreateReadings(ctx, readings); err != nil {
		return nil, fmt.Errorf("generate readings for friday %d: %w", fridayNumber, err)
	}
	slog.Info("Readings generated", "friday", fridayNumber, "groups", len(readings))
	return readings, nil
}
