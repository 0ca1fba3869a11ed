package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khatma/internal/models"
)

func TestUnitFirstFridays(t *testing.T) {
	m := Default()
	tests := []struct {
		friday int
		want   [models.SlotCount]int
	}{
		{181, [3]int{30, 1, 2}},
		{182, [3]int{29, 30, 1}},
		{183, [3]int{28, 29, 30}},
		{210, [3]int{1, 2, 3}},
		{211, [3]int{30, 1, 2}},
		{180, [3]int{1, 2, 3}},
	}
	for _, tt := range tests {
		got, err := m.Units(tt.friday)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "friday %d", tt.friday)
	}
}

func TestUnitIsBijectionOverOnePass(t *testing.T) {
	m := Default()
	for pos := 1; pos <= models.SlotCount; pos++ {
		seen := make(map[int]bool)
		for k := 0; k < UnitCount; k++ {
			u, err := m.Unit(FirstFriday+k, pos)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, u, 1)
			assert.LessOrEqual(t, u, UnitCount)
			assert.False(t, seen[u], "slot %d got juz %d twice", pos, u)
			seen[u] = true
		}
		assert.Len(t, seen, UnitCount)
	}
}

func TestSlotsNeverCollide(t *testing.T) {
	m := Default()
	for k := -45; k < 90; k++ {
		units, err := m.Units(FirstFriday + k)
		require.NoError(t, err)
		assert.NotEqual(t, units[0], units[1])
		assert.NotEqual(t, units[1], units[2])
		assert.NotEqual(t, units[0], units[2])
	}
}

func TestUnitInvalidPosition(t *testing.T) {
	m := Default()
	_, err := m.Unit(181, 0)
	assert.Error(t, err)
	_, err = m.Unit(181, 4)
	assert.Error(t, err)
}

func TestSlotUnitMatchesRotation(t *testing.T) {
	m := Default()
	for f := FirstFriday; f < FirstFriday+UnitCount; f++ {
		units, err := m.Units(f)
		require.NoError(t, err)
		for pos := 1; pos <= models.SlotCount; pos++ {
			assert.Equal(t, units[pos-1], m.SlotUnit(units[0], pos), "friday %d slot %d", f, pos)
		}
	}
}

func TestKhatma(t *testing.T) {
	m := Default()
	assert.Equal(t, 1, m.Khatma(1))
	assert.Equal(t, 1, m.Khatma(30))
	assert.Equal(t, 2, m.Khatma(31))
	assert.Equal(t, 2, m.Khatma(60))
	assert.Equal(t, 1, m.Khatma(0))
}

func TestBuild(t *testing.T) {
	m := Default()

	r, err := m.Build(181, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, r.JuzNumber)
	assert.Equal(t, 1, r.KhatmaNumber)
	assert.Empty(t, r.Person1Name)
	assert.Nil(t, r.Person1ID)

	members := []models.Person{{ID: 7, Name: "Ahmed"}, {ID: 9, Name: "Sara"}}
	r, err = m.Build(182, 31, members)
	require.NoError(t, err)
	assert.Equal(t, 29, r.JuzNumber)
	assert.Equal(t, 2, r.KhatmaNumber)
	assert.Equal(t, "Ahmed", r.Person1Name)
	require.NotNil(t, r.Person2ID)
	assert.Equal(t, uint(9), *r.Person2ID)
	assert.Empty(t, r.Person3Name)

	_, err = m.Build(181, 1, make([]models.Person, 4))
	assert.Error(t, err)
}

func TestQuranLinks(t *testing.T) {
	p, err := StartPage(1)
	require.NoError(t, err)
	assert.Equal(t, 1, p)
	p, err = StartPage(2)
	require.NoError(t, err)
	assert.Equal(t, 22, p)
	p, err = StartPage(30)
	require.NoError(t, err)
	assert.Equal(t, 582, p)

	link, err := ReaderLink(3)
	require.NoError(t, err)
	assert.Equal(t, "https://app.quranflash.com/book/Medina1?ar&startpage=42#/reader", link)

	_, err = ReaderLink(31)
	assert.Error(t, err)

	assert.Equal(t, "الجزء الثلاثون", JuzName(30))
}
