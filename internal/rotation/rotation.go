// Package rotation computes which juz each slot of a group reads on a given
// Friday. Every slot walks the 30 ajza backwards one step per Friday, each
// starting from its own base so the three members of a group never collide.
package rotation

import (
	"fmt"

	"khatma/internal/models"
)

const (
	// UnitCount is the number of ajza in one khatma
	UnitCount = 30
	// FirstFriday is the Friday the current rotation started at
	FirstFriday = 181
	// GroupsPerKhatma is how many groups share one khatma pass
	GroupsPerKhatma = 30
)

// SlotBases are the units slots 1..3 read on the first Friday
var SlotBases = [models.SlotCount]int{30, 1, 2}

// Model holds the rotation parameters. The zero value is not usable, use Default.
type Model struct {
	FirstFriday     int
	UnitCount       int
	GroupsPerKhatma int
	Bases           [models.SlotCount]int
}

// Default returns the rotation the khatma runs with
func Default() Model {
	return Model{
		FirstFriday:     FirstFriday,
		UnitCount:       UnitCount,
		GroupsPerKhatma: GroupsPerKhatma,
		Bases:           SlotBases,
	}
}

// WithFirstFriday returns a copy of m anchored at a different first Friday
func (m Model) WithFirstFriday(first int) Model {
	m.FirstFriday = first
	return m
}

// Unit returns the juz read at slot position (1..3) on fridayNumber
func (m Model) Unit(fridayNumber, position int) (int, error) {
	if position < 1 || position > len(m.Bases) {
		return 0, fmt.Errorf("invalid slot position %d", position)
	}
	if m.UnitCount <= 0 {
		return 0, fmt.Errorf("invalid unit count %d", m.UnitCount)
	}
	offset := fridayNumber - m.FirstFriday
	return mod(m.Bases[position-1]-offset-1, m.UnitCount) + 1, nil
}

// Units returns the juz of every slot on fridayNumber
func (m Model) Units(fridayNumber int) ([models.SlotCount]int, error) {
	var out [models.SlotCount]int
	for i := range out {
		u, err := m.Unit(fridayNumber, i+1)
		if err != nil {
			return out, err
		}
		out[i] = u
	}
	return out, nil
}

// Khatma returns the pass a group belongs to: the first GroupsPerKhatma
// groups read khatma 1, the next ones khatma 2 and so on.
func (m Model) Khatma(groupNumber int) int {
	if groupNumber < 1 || m.GroupsPerKhatma <= 0 {
		return 1
	}
	return (groupNumber-1)/m.GroupsPerKhatma + 1
}

// SlotUnit derives the juz of a slot from the slot-1 juz stored on a reading
func (m Model) SlotUnit(slotOneUnit, position int) int {
	if position < 1 || position > len(m.Bases) {
		return slotOneUnit
	}
	shift := m.Bases[position-1] - m.Bases[0]
	return mod(slotOneUnit+shift-1, m.UnitCount) + 1
}

// Build creates the reading of one group for fridayNumber. Members fill the
// slots in order; missing members leave the slot empty.
func (m Model) Build(fridayNumber, groupNumber int, members []models.Person) (models.Reading, error) {
	if groupNumber < 1 {
		return models.Reading{}, fmt.Errorf("invalid group number %d", groupNumber)
	}
	if len(members) > models.SlotCount {
		return models.Reading{}, fmt.Errorf("group %d has %d members, at most %d allowed", groupNumber, len(members), models.SlotCount)
	}
	unit, err := m.Unit(fridayNumber, 1)
	if err != nil {
		return models.Reading{}, err
	}

	r := models.Reading{
		FridayNumber: fridayNumber,
		JuzNumber:    unit,
		KhatmaNumber: m.Khatma(groupNumber),
		GroupNumber:  groupNumber,
	}
	for i := range members {
		id := members[i].ID
		r.SetSlot(i+1, &id, members[i].Name)
	}
	return r, nil
}

// mod is the euclidean modulo, never negative for n > 0
func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
