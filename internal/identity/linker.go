// Package identity binds Telegram chats to participants.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"khatma/internal/models"
	"khatma/internal/storage"
)

var (
	// ErrAmbiguousName means more than one participant carries the requested name
	ErrAmbiguousName = errors.New("ambiguous name")
	// ErrAlreadyLinkedElsewhere means the participant or the chat is bound to someone else
	ErrAlreadyLinkedElsewhere = errors.New("already linked elsewhere")
)

// Store is the part of the persistence layer the linker uses
type Store interface {
	FindPersonsByName(ctx context.Context, name string) ([]models.Person, error)
	GetPersonByChatID(ctx context.Context, chatID string) (*models.Person, error)
	LinkChat(ctx context.Context, id uint, chatID string, username *string) error
}

// Linker enforces one chat per participant and one participant per chat
type Linker struct {
	store Store
}

// NewLinker creates a linker over store
func NewLinker(store Store) *Linker {
	return &Linker{store: store}
}

// Link binds chatID to the participant named exactly name. Linking the same
// chat to the same participant again succeeds and refreshes the handle.
func (l *Linker) Link(ctx context.Context, name, chatID string, handle *string) (*models.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("link: empty name: %w", storage.ErrNotFound)
	}
	if chatID == "" {
		return nil, fmt.Errorf("link: empty chat id")
	}

	matches, err := l.store.FindPersonsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("link %q: %w", name, storage.ErrNotFound)
	case 1:
	default:
		return nil, fmt.Errorf("link %q: %d participants share this name: %w", name, len(matches), ErrAmbiguousName)
	}
	person := matches[0]

	if person.IsLinked() && *person.TelegramChatID != chatID {
		return nil, fmt.Errorf("link %q: participant has another chat: %w", name, ErrAlreadyLinkedElsewhere)
	}

	owner, err := l.store.GetPersonByChatID(ctx, chatID)
	switch {
	case err == nil && owner.ID != person.ID:
		return nil, fmt.Errorf("link %q: chat belongs to %q: %w", name, owner.Name, ErrAlreadyLinkedElsewhere)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("link: %w", err)
	}

	if err := l.store.LinkChat(ctx, person.ID, chatID, handle); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("link %q: %w", name, ErrAlreadyLinkedElsewhere)
		}
		return nil, fmt.Errorf("link: %w", err)
	}

	person.TelegramChatID = &chatID
	if handle != nil {
		person.TelegramUsername = handle
	}
	slog.Info("Telegram chat linked", "person_id", person.ID, "name", person.Name, "chat_id", chatID)
	return &person, nil
}

// ByChatID returns the participant bound to chatID, or storage.ErrNotFound
func (l *Linker) ByChatID(ctx context.Context, chatID string) (*models.Person, error) {
	return l.store.GetPersonByChatID(ctx, chatID)
}
