package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"khatma/internal/config"
	"khatma/internal/database"
	"khatma/internal/models"
	"khatma/internal/storage"
	"khatma/internal/storage/gormstore"
)

func newStore(t *testing.T) *gormstore.Store {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "identity.db"),
	}, database.Options{MaxRetries: 1, LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return gormstore.New(db)
}

func add(t *testing.T, s *gormstore.Store, name string) *models.Person {
	t.Helper()
	p := &models.Person{Name: name, GroupNumber: 1}
	require.NoError(t, s.CreatePerson(context.Background(), p))
	return p
}

func TestLinkSucceedsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	add(t, s, "Ahmed")
	l := NewLinker(s)

	handle := "ahmed"
	p, err := l.Link(ctx, " Ahmed ", "chat1", &handle)
	require.NoError(t, err)
	assert.Equal(t, "chat1", *p.TelegramChatID)

	again, err := l.Link(ctx, "Ahmed", "chat1", nil)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	persons, err := s.ListPersons(ctx)
	require.NoError(t, err)
	assert.Len(t, persons, 1)

	byChat, err := l.ByChatID(ctx, "chat1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byChat.ID)
	assert.Equal(t, "ahmed", *byChat.TelegramUsername)
}

func TestLinkUnknownName(t *testing.T) {
	s := newStore(t)
	add(t, s, "Ahmed")

	_, err := NewLinker(s).Link(context.Background(), "Ahmad", "chat1", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLinkAmbiguousNameNeverPicksOne(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	add(t, s, "Ahmed")
	add(t, s, "Ahmed")

	_, err := NewLinker(s).Link(ctx, "Ahmed", "chat1", nil)
	assert.ErrorIs(t, err, ErrAmbiguousName)

	persons, err := s.ListPersons(ctx)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	for _, p := range persons {
		assert.Nil(t, p.TelegramChatID)
	}
}

func TestLinkConflicts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	add(t, s, "Ahmed")
	add(t, s, "Sara")
	l := NewLinker(s)

	_, err := l.Link(ctx, "Ahmed", "chat1", nil)
	require.NoError(t, err)

	// participant already bound to another chat
	_, err = l.Link(ctx, "Ahmed", "chat2", nil)
	assert.ErrorIs(t, err, ErrAlreadyLinkedElsewhere)

	// chat already bound to another participant
	_, err = l.Link(ctx, "Sara", "chat1", nil)
	assert.ErrorIs(t, err, ErrAlreadyLinkedElsewhere)

	sara, err := s.FindPersonsByName(ctx, "Sara")
	require.NoError(t, err)
	assert.Nil(t, sara[0].TelegramChatID)
}
