package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"khatma/internal/models"
	"khatma/internal/storage"
)

// Source is the read side of the store the engine needs
type Source interface {
	AllReadings(ctx context.Context) ([]models.Reading, error)
	ReadingsForPerson(ctx context.Context, name string) ([]models.Reading, error)
	ReadingsForFriday(ctx context.Context, fridayNumber int) ([]models.Reading, error)
	ListFridays(ctx context.Context) ([]models.Friday, error)
}

// Engine answers analytics queries against the store. Query methods never
// fail: when the store errors they log and return a neutral value.
type Engine struct {
	src Source
	loc *time.Location
	now func() time.Time
}

// NewEngine creates an engine resolving "today" in loc
func NewEngine(src Source, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{src: src, loc: loc, now: time.Now}
}

// WithClock replaces the engine's clock
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now returns the engine's current time
func (e *Engine) Now() time.Time {
	return e.now()
}

// Pending is an assignment not yet completed
type Pending struct {
	FridayNumber int `json:"friday_number"`
	GroupNumber  int `json:"group_number"`
	JuzNumber    int `json:"juz_number"`
	Position     int `json:"position"`
}

// Summary is the status block of one participant
type Summary struct {
	Name          string      `json:"name"`
	CurrentFriday int         `json:"current_friday"`
	Completed     int         `json:"completed"`
	Total         int         `json:"total"`
	Pending       int         `json:"pending"`
	Streak        int         `json:"streak"`
	Rate          int         `json:"rate"`
	LastCompleted *Completion `json:"last_completed,omitempty"`
	NextPending   *Pending    `json:"next_pending,omitempty"`
	GroupRank     Rank        `json:"group_rank"`
	GlobalRank    Rank        `json:"global_rank"`
}

// CurrentFriday resolves the Friday in progress from the calendar
func (e *Engine) CurrentFriday(ctx context.Context) (models.Friday, error) {
	fridays, err := e.src.ListFridays(ctx)
	if err != nil {
		return models.Friday{}, err
	}
	f, ok := CurrentFriday(fridays, e.now(), e.loc)
	if !ok {
		return models.Friday{}, fmt.Errorf("no fridays configured: %w", storage.ErrNotFound)
	}
	return f, nil
}

// NextFriday returns the Friday after number
func (e *Engine) NextFriday(ctx context.Context, number int) (models.Friday, error) {
	fridays, err := e.src.ListFridays(ctx)
	if err != nil {
		return models.Friday{}, err
	}
	f, ok := NextFriday(fridays, number)
	if !ok {
		return models.Friday{}, fmt.Errorf("no friday after %d: %w", number, storage.ErrNotFound)
	}
	return f, nil
}

// Summary computes the full status block of name. Records after the current
// Friday are ignored, and an unfinished current Friday does not break the streak.
func (e *Engine) Summary(ctx context.Context, name string) Summary {
	s := Summary{Name: name}

	current := e.currentNumber(ctx)
	s.CurrentFriday = current

	mine, err := e.src.ReadingsForPerson(ctx, name)
	if err != nil {
		slog.Warn("Analytics: failed to load readings", "name", name, "error", err)
		return s
	}
	scoped := through(mine, current)

	s.Completed, s.Total = Counts(scoped, name)
	s.Pending = s.Total - s.Completed
	s.Rate = Percent(s.Completed, s.Total)
	s.Streak = Streak(withoutOpen(scoped, name, current), name)

	if last, ok := LastCompleted(scoped, name); ok {
		s.LastCompleted = &last
	}
	if next, ok := NextPending(mine, name, current); ok {
		s.NextPending = &Pending{
			FridayNumber: next.FridayNumber,
			GroupNumber:  next.GroupNumber,
			JuzNumber:    next.JuzNumber,
			Position:     next.PositionOf(name),
		}
	}

	all, err := e.src.AllReadings(ctx)
	if err != nil {
		slog.Warn("Analytics: failed to load completion log", "error", err)
		return s
	}
	s.GroupRank = GroupRank(all, name)
	s.GlobalRank = GlobalRank(all, name)
	return s
}

// CompletionRate of name through the current Friday
func (e *Engine) CompletionRate(ctx context.Context, name string) int {
	mine, err := e.src.ReadingsForPerson(ctx, name)
	if err != nil {
		slog.Warn("Analytics: completion rate unavailable", "name", name, "error", err)
		return 0
	}
	return CompletionRate(through(mine, e.currentNumber(ctx)), name)
}

// Streak of name through the current Friday
func (e *Engine) Streak(ctx context.Context, name string) int {
	mine, err := e.src.ReadingsForPerson(ctx, name)
	if err != nil {
		slog.Warn("Analytics: streak unavailable", "name", name, "error", err)
		return 0
	}
	current := e.currentNumber(ctx)
	return Streak(withoutOpen(through(mine, current), name, current), name)
}

// IsFirstInGroup reports whether name was the first of their group to complete fridayNumber
func (e *Engine) IsFirstInGroup(ctx context.Context, fridayNumber, groupNumber int, name string) bool {
	readings, err := e.src.ReadingsForFriday(ctx, fridayNumber)
	if err != nil {
		slog.Warn("Analytics: first-in-group unavailable", "friday", fridayNumber, "error", err)
		return false
	}
	first, ok := FirstInGroup(readings, fridayNumber, groupNumber)
	return ok && first == name
}

// IsFirstOverall reports whether name was the first to complete fridayNumber
func (e *Engine) IsFirstOverall(ctx context.Context, fridayNumber int, name string) bool {
	readings, err := e.src.ReadingsForFriday(ctx, fridayNumber)
	if err != nil {
		slog.Warn("Analytics: first-overall unavailable", "friday", fridayNumber, "error", err)
		return false
	}
	first, ok := FirstOverall(readings, fridayNumber)
	return ok && first == name
}

// FridayStats summarises one Friday
func (e *Engine) FridayStats(ctx context.Context, fridayNumber int) FridayStats {
	readings, err := e.src.ReadingsForFriday(ctx, fridayNumber)
	if err != nil {
		slog.Warn("Analytics: friday stats unavailable", "friday", fridayNumber, "error", err)
		return finish(FridayStats{FridayNumber: fridayNumber})
	}
	return StatsForFriday(readings, fridayNumber)
}

// AllFridaysStats summarises every Friday
func (e *Engine) AllFridaysStats(ctx context.Context) []FridayStats {
	fridays, err := e.src.ListFridays(ctx)
	if err != nil {
		slog.Warn("Analytics: fridays unavailable", "error", err)
		return []FridayStats{}
	}
	readings, err := e.src.AllReadings(ctx)
	if err != nil {
		slog.Warn("Analytics: completion log unavailable", "error", err)
		return []FridayStats{}
	}
	return StatsForFridays(fridays, readings)
}

// TopReaders returns the leaderboard
func (e *Engine) TopReaders(ctx context.Context, limit int) []Reader {
	readings, err := e.src.AllReadings(ctx)
	if err != nil {
		slog.Warn("Analytics: completion log unavailable", "error", err)
		return []Reader{}
	}
	return TopReaders(readings, limit)
}

// currentNumber is the current Friday number, or 0 when unknown
func (e *Engine) currentNumber(ctx context.Context) int {
	f, err := e.CurrentFriday(ctx)
	if err != nil {
		slog.Debug("Analytics: current friday unknown", "error", err)
		return 0
	}
	return f.FridayNumber
}

// through keeps records up to and including fridayNumber; 0 keeps all
func through(readings []models.Reading, fridayNumber int) []models.Reading {
	if fridayNumber <= 0 {
		return readings
	}
	out := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		if r.FridayNumber <= fridayNumber {
			out = append(out, r)
		}
	}
	return out
}

// withoutOpen drops name's unfinished record for the Friday still in progress
func withoutOpen(readings []models.Reading, name string, current int) []models.Reading {
	if current <= 0 {
		return readings
	}
	out := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		if r.FridayNumber == current {
			if slot, ok := r.SlotFor(name); ok && !slot.Done {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
