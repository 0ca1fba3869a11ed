package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"khatma/internal/config"
	"khatma/internal/database"
	"khatma/internal/models"
	"khatma/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}, database.Options{MaxRetries: 1, LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return New(db)
}

func addPerson(t *testing.T, s *Store, name string, group int) *models.Person {
	t.Helper()
	p := &models.Person{Name: name, GroupNumber: group}
	require.NoError(t, s.CreatePerson(context.Background(), p))
	return p
}

func reading(friday, group, juz int, members ...*models.Person) models.Reading {
	r := models.Reading{FridayNumber: friday, GroupNumber: group, JuzNumber: juz, KhatmaNumber: 1}
	for i, m := range members {
		id := m.ID
		r.SetSlot(i+1, &id, m.Name)
	}
	return r
}

func TestPersonsCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := addPerson(t, s, "  Ahmed ", 1)
	assert.Equal(t, "Ahmed", a.Name)
	addPerson(t, s, "Sara", 2)

	persons, err := s.ListPersons(ctx)
	require.NoError(t, err)
	assert.Len(t, persons, 2)

	got, err := s.GetPerson(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ahmed", got.Name)

	_, err = s.GetPerson(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.SetAdmin(ctx, a.ID, true))
	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, a.ID, admins[0].ID)

	require.NoError(t, s.UpdatePersonGroup(ctx, a.ID, 7))
	got, err = s.GetPerson(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.GroupNumber)

	assert.ErrorIs(t, s.SetAdmin(ctx, 999, true), storage.ErrNotFound)
	assert.Error(t, s.CreatePerson(ctx, &models.Person{Name: "   "}))
}

func TestLinkChat(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addPerson(t, s, "Ahmed", 1)
	b := addPerson(t, s, "Sara", 1)

	handle := "ahmed_tg"
	require.NoError(t, s.LinkChat(ctx, a.ID, "100", &handle))
	require.NoError(t, s.LinkChat(ctx, a.ID, "100", nil))

	got, err := s.GetPersonByChatID(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	require.NotNil(t, got.TelegramUsername)
	assert.Equal(t, "ahmed_tg", *got.TelegramUsername)

	err = s.LinkChat(ctx, b.ID, "100", nil)
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = s.GetPersonByChatID(ctx, "200")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	linked, err := s.ListLinkedPersons(ctx)
	require.NoError(t, err)
	assert.Len(t, linked, 1)
}

func TestRenameRoundTripLeavesReadingsUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addPerson(t, s, "A", 1)
	b := addPerson(t, s, "Other", 1)

	legacy := models.Reading{FridayNumber: 183, GroupNumber: 1, JuzNumber: 28, Person2Name: "A"}
	require.NoError(t, s.CreateReadings(ctx, []models.Reading{
		reading(181, 1, 30, a, b),
		reading(182, 1, 29, b, a),
		legacy,
	}))
	readings, err := s.ReadingsForFriday(ctx, 181)
	require.NoError(t, err)
	require.NoError(t, s.SetSlotStatus(ctx, readings[0].ID, 1, true, time.Date(2025, 11, 21, 9, 0, 0, 0, time.UTC)))

	before, err := s.AllReadings(ctx)
	require.NoError(t, err)

	require.NoError(t, s.RenamePerson(ctx, a.ID, "B"))

	mid, err := s.ReadingsForPerson(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, mid, 3)
	none, err := s.ReadingsForPerson(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, s.RenamePerson(ctx, a.ID, "A"))

	after, err := s.AllReadings(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRenameOntoTakenNameIsRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addPerson(t, s, "A", 1)
	addPerson(t, s, "B", 2)

	require.NoError(t, s.CreateReadings(ctx, []models.Reading{
		{FridayNumber: 181, GroupNumber: 1, JuzNumber: 30, Person1Name: "A"},
	}))
	before, err := s.AllReadings(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RenamePerson(ctx, a.ID, "B"), storage.ErrConflict)

	p, err := s.GetPerson(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", p.Name)
	after, err := s.AllReadings(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, "A", after[0].Person1Name)
}

func TestRenameKeepsNamesakeLegacySlots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addPerson(t, s, "Ahmed", 1)
	addPerson(t, s, "Ahmed", 2)

	require.NoError(t, s.CreateReadings(ctx, []models.Reading{
		{FridayNumber: 181, GroupNumber: 2, JuzNumber: 30, Person1Name: "Ahmed"},
	}))
	require.NoError(t, s.RenamePerson(ctx, a.ID, "Ahmed Ali"))

	rs, err := s.ReadingsForPerson(ctx, "Ahmed")
	require.NoError(t, err)
	assert.Len(t, rs, 1)
}

func TestDeletePersonCascadesReadings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addPerson(t, s, "A", 1)
	b := addPerson(t, s, "B", 2)

	require.NoError(t, s.CreateReadings(ctx, []models.Reading{
		reading(181, 1, 30, a),
		reading(181, 2, 30, b),
		reading(182, 1, 29, a),
	}))

	require.NoError(t, s.DeletePerson(ctx, a.ID))

	all, err := s.AllReadings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].Person1Name)

	assert.ErrorIs(t, s.DeletePerson(ctx, a.ID), storage.ErrNotFound)
}

func TestReadingQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addPerson(t, s, "Abdullah", 1)
	b := addPerson(t, s, "Sara", 1)
	c := addPerson(t, s, "Maryam_1", 2)

	require.NoError(t, s.CreateReadings(ctx, []models.Reading{
		reading(182, 1, 29, a, b),
		reading(181, 1, 30, a, b),
		reading(181, 2, 30, c),
	}))

	// duplicates for the same Friday and group are skipped
	require.NoError(t, s.CreateReadings(ctx, []models.Reading{reading(181, 1, 30, b)}))

	rs, err := s.ReadingsForFriday(ctx, 181)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, 1, rs[0].GroupNumber)
	assert.Equal(t, "Abdullah", rs[0].Person1Name)

	rs, err = s.ReadingsForPerson(ctx, "Sara")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, 181, rs[0].FridayNumber)

	rs, err = s.SearchReadings(ctx, "dull")
	require.NoError(t, err)
	assert.Len(t, rs, 2)

	rs, err = s.SearchReadings(ctx, "_")
	require.NoError(t, err)
	assert.Len(t, rs, 1)

	rs, err = s.SearchReadings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rs, 3)
}

func TestSetSlotStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addPerson(t, s, "A", 1)
	require.NoError(t, s.CreateReadings(ctx, []models.Reading{reading(181, 1, 30, a)}))
	rs, err := s.ReadingsForFriday(ctx, 181)
	require.NoError(t, err)
	id := rs[0].ID

	at := time.Date(2025, 11, 21, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetSlotStatus(ctx, id, 1, true, at))
	r, err := s.GetReading(ctx, id)
	require.NoError(t, err)
	assert.True(t, r.Person1Status)
	require.NotNil(t, r.Person1Date)
	assert.True(t, at.Equal(*r.Person1Date))

	require.NoError(t, s.SetSlotStatus(ctx, id, 1, false, at))
	r, err = s.GetReading(ctx, id)
	require.NoError(t, err)
	assert.False(t, r.Person1Status)
	assert.Nil(t, r.Person1Date)

	assert.Error(t, s.SetSlotStatus(ctx, id, 4, true, at))
	assert.ErrorIs(t, s.SetSlotStatus(ctx, 999, 1, true, at), storage.ErrNotFound)
}

func TestFridays(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	d1, _ := models.ParseDate("2025-11-21")
	d2, _ := models.ParseDate("2025-11-28")
	require.NoError(t, s.CreateFridays(ctx, []models.Friday{
		{FridayNumber: 182, Date: d2},
		{FridayNumber: 181, Date: d1},
	}))

	fridays, err := s.ListFridays(ctx)
	require.NoError(t, err)
	require.Len(t, fridays, 2)
	assert.Equal(t, 181, fridays[0].FridayNumber)

	err = s.CreateFridays(ctx, []models.Friday{{FridayNumber: 181, Date: d1}})
	assert.ErrorIs(t, err, storage.ErrConflict)

	hijri := "1447-06-07"
	d3, _ := models.ParseDate("2025-11-29")
	require.NoError(t, s.UpdateFridayDate(ctx, 182, d3, &hijri))
	f, err := s.GetFriday(ctx, 182)
	require.NoError(t, err)
	assert.True(t, d3.Equal(f.Date))
	assert.Equal(t, hijri, f.DateHijri)

	assert.ErrorIs(t, s.UpdateFridayDate(ctx, 300, d3, nil), storage.ErrNotFound)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetSetting(ctx, models.SettingCurrentFriday)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.SetSetting(ctx, models.SettingCurrentFriday, "181"))
	require.NoError(t, s.SetSetting(ctx, models.SettingCurrentFriday, "182"))

	v, err := s.GetSetting(ctx, models.SettingCurrentFriday)
	require.NoError(t, err)
	assert.Equal(t, "182", v)
}

func TestNotificationsLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{
			FridayNumber:     181,
			RecipientName:    "A",
			RecipientChatID:  "1",
			MessageText:      "hi",
			NotificationType: models.NotificationReminder,
			Status:           models.StatusSent,
		}))
	}
	out, err := s.ListNotifications(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	require.NoError(t, s.CreateDispatchRun(ctx, &models.DispatchRun{
		FridayNumber:     181,
		NotificationType: models.NotificationManual,
		Total:            3,
		Sent:             3,
		StartedAt:        time.Now(),
		FinishedAt:       time.Now(),
	}))
	runs, err := s.ListDispatchRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Sent)
}
