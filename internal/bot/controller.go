// Package bot is the conversational controller: it turns Telegram updates
// into replies. It keeps no per-chat state; the buttons of the previous
// reply carry the conversation forward.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"khatma/internal/analytics"
	"khatma/internal/identity"
	"khatma/internal/metrics"
	"khatma/internal/models"
	"khatma/internal/rotation"
	"khatma/internal/storage"
	"khatma/internal/telegram"
)

const failureNoticeTimeout = 5 * time.Second

// Store is the persistence the controller reads and writes
type Store interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	ReadingsForFriday(ctx context.Context, fridayNumber int) ([]models.Reading, error)
	SetSlotStatus(ctx context.Context, readingID uint, position int, done bool, at time.Time) error
}

// Identity links chats to participants
type Identity interface {
	Link(ctx context.Context, name, chatID string, handle *string) (*models.Person, error)
	ByChatID(ctx context.Context, chatID string) (*models.Person, error)
}

// Controller handles one update at a time; it is safe for concurrent use
type Controller struct {
	messenger telegram.Messenger
	identity  Identity
	store     Store
	engine    *analytics.Engine
	rotation  rotation.Model
	health    *telegram.Health
	metrics   *metrics.Metrics
	pick      Picker
}

// Option configures a Controller
type Option func(*Controller)

// WithHealth records every handled update in h
func WithHealth(h *telegram.Health) Option {
	return func(c *Controller) { c.health = h }
}

// WithMetrics counts handled updates
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPicker replaces the random choice of motivational lines
func WithPicker(p Picker) Option {
	return func(c *Controller) { c.pick = p }
}

// WithRotation sets the model used to derive each slot's juz
func WithRotation(m rotation.Model) Option {
	return func(c *Controller) { c.rotation = m }
}

func NewController(messenger telegram.Messenger, id Identity, store Store, engine *analytics.Engine, opts ...Option) *Controller {
	c := &Controller{
		messenger: messenger,
		identity:  id,
		store:     store,
		engine:    engine,
		rotation:  rotation.Default(),
		pick:      randomPicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request is what the controller knows about the sender of an update
type request struct {
	chatID    string
	firstName string
	username  *string
}

// HandleUpdate answers a single update. Failures and panics are logged and
// answered with a generic message; nothing is returned to the transport.
func (c *Controller) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	kind, req, ok := describe(update)
	if !ok {
		c.metrics.ObserveUpdate("ignored", "ok")
		return
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			slog.Error("Telegram update failed", "kind", kind, "chat_id", req.chatID, "update_id", update.UpdateID, "error", err)
			c.health.RecordError(err)
			c.metrics.ObserveUpdate(kind, "error")
			// the update's own context may be the thing that expired
			noticeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureNoticeTimeout)
			defer cancel()
			if sendErr := c.messenger.Send(noticeCtx, req.chatID, MsgGenericFailure, backToMenuKeyboard()); sendErr != nil {
				slog.Warn("Failed to send failure notice", "chat_id", req.chatID, "error", sendErr)
			}
			return
		}
		c.health.RecordUpdate()
		c.metrics.ObserveUpdate(kind, "ok")
	}()

	switch kind {
	case "callback":
		c.messenger.AnswerCallback(ctx, update.CallbackQuery.ID)
		err = c.handleCallback(ctx, req, update.CallbackQuery.Data)
	case "message":
		err = c.handleText(ctx, req, strings.TrimSpace(update.Message.Text))
	default:
		err = c.reply(ctx, req, msgTextOnly, startKeyboard())
	}
}

func describe(u tgbotapi.Update) (string, request, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		req := request{}
		if cq.From != nil {
			req.firstName = cq.From.FirstName
			req.username = handle(cq.From.UserName)
			req.chatID = strconv.FormatInt(cq.From.ID, 10)
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			req.chatID = strconv.FormatInt(cq.Message.Chat.ID, 10)
		}
		return "callback", req, req.chatID != ""
	case u.Message != nil && u.Message.Chat != nil:
		m := u.Message
		req := request{chatID: strconv.FormatInt(m.Chat.ID, 10)}
		if m.From != nil {
			req.firstName = m.From.FirstName
			req.username = handle(m.From.UserName)
		}
		if strings.TrimSpace(m.Text) == "" {
			return "other", req, true
		}
		return "message", req, true
	}
	return "", request{}, false
}

func handle(username string) *string {
	if username == "" {
		return nil
	}
	return &username
}

func (c *Controller) reply(ctx context.Context, req request, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	return c.messenger.Send(ctx, req.chatID, text, kb)
}

func (c *Controller) handleText(ctx context.Context, req request, text string) error {
	if strings.HasPrefix(text, "/") {
		return c.handleCommand(ctx, req, text)
	}

	person, err := c.linked(ctx, req)
	if err != nil {
		return err
	}
	if person != nil {
		return c.reply(ctx, req, alreadyLinkedText(person), mainMenuKeyboard())
	}
	return c.link(ctx, req, text, true)
}

func (c *Controller) handleCommand(ctx context.Context, req request, text string) error {
	cmd := strings.Fields(text)[0]
	// "/start@khatma_bot" in group chats
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "/start":
		return c.mainMenu(ctx, req)
	case "/help", "/مساعدة":
		return c.reply(ctx, req, msgHelp, helpKeyboard())
	case "/done", "/تم":
		return c.markDone(ctx, req)
	case "/status", "/حالتي":
		return c.status(ctx, req)
	case "/menu":
		return c.mainMenu(ctx, req)
	default:
		return c.reply(ctx, req, msgUnknownCommand, helpKeyboard())
	}
}

func (c *Controller) handleCallback(ctx context.Context, req request, data string) error {
	if name, ok := strings.CutPrefix(data, cbConfirmLink); ok {
		return c.link(ctx, req, name, false)
	}

	switch data {
	case cbMainMenu:
		return c.mainMenu(ctx, req)
	case cbStartJourney:
		return c.reply(ctx, req, msgStartJourney, backToMenuKeyboard())
	case cbAbout:
		return c.reply(ctx, req, msgAbout, aboutKeyboard())
	case cbHelp:
		return c.reply(ctx, req, msgHelp, helpKeyboard())
	case cbMarkDone:
		return c.markDone(ctx, req)
	case cbMyStatus:
		return c.status(ctx, req)
	case cbOpenQuran:
		return c.openQuran(ctx, req)
	case cbDua:
		return c.reply(ctx, req, msgDua, mainMenuKeyboard())
	case cbTips:
		return c.reply(ctx, req, msgTips, mainMenuKeyboard())
	case cbCancelLink:
		return c.reply(ctx, req, msgCancelLink, backToMenuKeyboard())
	default:
		slog.Debug("Unknown callback data", "data", data, "chat_id", req.chatID)
		return c.mainMenu(ctx, req)
	}
}

// linked returns the participant bound to the chat, or nil when there is none
func (c *Controller) linked(ctx context.Context, req request) (*models.Person, error) {
	p, err := c.identity.ByChatID(ctx, req.chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// link binds the chat to name. When suggest is set and the exact name is
// unknown, a close match is offered for confirmation.
func (c *Controller) link(ctx context.Context, req request, name string, suggest bool) error {
	person, err := c.identity.Link(ctx, name, req.chatID, req.username)
	switch {
	case err == nil:
		return c.reply(ctx, req, linkedText(person), mainMenuKeyboard())
	case errors.Is(err, storage.ErrNotFound):
		if suggest {
			if match, ok := c.closeMatch(ctx, name); ok {
				if kb := confirmLinkKeyboard(match); kb != nil {
					return c.reply(ctx, req, suggestText(match), kb)
				}
			}
		}
		return c.reply(ctx, req, notFoundText(name), backToMenuKeyboard())
	case errors.Is(err, identity.ErrAmbiguousName):
		return c.reply(ctx, req, ambiguousText(name), backToMenuKeyboard())
	case errors.Is(err, identity.ErrAlreadyLinkedElsewhere):
		return c.reply(ctx, req, linkedElsewhereText(name), backToMenuKeyboard())
	default:
		return err
	}
}

// closeMatch finds the single participant whose name equals name once
// spacing and letter case are ignored
func (c *Controller) closeMatch(ctx context.Context, name string) (string, bool) {
	persons, err := c.store.ListPersons(ctx)
	if err != nil {
		slog.Warn("Failed to load participants for suggestion", "error", err)
		return "", false
	}
	want := normalizeName(name)
	found := ""
	for _, p := range persons {
		if normalizeName(p.Name) != want {
			continue
		}
		if found != "" {
			return "", false
		}
		found = p.Name
	}
	return found, found != ""
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (c *Controller) mainMenu(ctx context.Context, req request) error {
	person, err := c.linked(ctx, req)
	if err != nil {
		return err
	}
	if person == nil {
		text := msgWelcome
		if req.firstName != "" {
			text = fmt.Sprintf("🕌 <b>مرحباً %s!</b>\n\n", html.EscapeString(req.firstName)) + msgWelcome
		}
		return c.reply(ctx, req, text, startKeyboard())
	}

	friday, a, err := c.currentAssignment(ctx, person)
	if err != nil {
		return err
	}
	return c.reply(ctx, req, menuText(person, friday, a), mainMenuKeyboard())
}

func (c *Controller) markDone(ctx context.Context, req request) error {
	person, err := c.linked(ctx, req)
	if err != nil {
		return err
	}
	if person == nil {
		return c.reply(ctx, req, msgNotLinked, backToMenuKeyboard())
	}

	friday, a, err := c.currentAssignment(ctx, person)
	if err != nil {
		return err
	}
	if friday == nil {
		return c.reply(ctx, req, msgNoCurrentFriday, mainMenuKeyboard())
	}
	if a == nil {
		return c.reply(ctx, req, msgNoAssignment, mainMenuKeyboard())
	}
	if a.slot.Done {
		return c.reply(ctx, req, alreadyDoneText(a), mainMenuKeyboard())
	}

	if err := c.store.SetSlotStatus(ctx, a.reading.ID, a.slot.Position, true, c.engine.Now()); err != nil {
		return fmt.Errorf("mark friday %d slot %d: %w", a.reading.FridayNumber, a.slot.Position, err)
	}
	slog.Info("Reading marked done", "name", person.Name, "friday", a.reading.FridayNumber, "group", a.reading.GroupNumber)

	name := a.slot.Name
	achievement := Achievement{
		Streak:       c.engine.Streak(ctx, name),
		Rate:         c.engine.CompletionRate(ctx, name),
		FirstInGroup: c.engine.IsFirstInGroup(ctx, a.reading.FridayNumber, a.reading.GroupNumber, name),
		FirstOverall: c.engine.IsFirstOverall(ctx, a.reading.FridayNumber, name),
	}
	return c.reply(ctx, req, markedText(person, a, Motivation(achievement, c.pick)), mainMenuKeyboard())
}

func (c *Controller) status(ctx context.Context, req request) error {
	person, err := c.linked(ctx, req)
	if err != nil {
		return err
	}
	if person == nil {
		return c.reply(ctx, req, msgNotLinked, backToMenuKeyboard())
	}
	return c.reply(ctx, req, statusText(person, c.engine.Summary(ctx, person.Name)), mainMenuKeyboard())
}

func (c *Controller) openQuran(ctx context.Context, req request) error {
	person, err := c.linked(ctx, req)
	if err != nil {
		return err
	}
	if person != nil {
		friday, a, err := c.currentAssignment(ctx, person)
		if err != nil {
			return err
		}
		if a != nil {
			return c.reply(ctx, req, quranText(friday, a), quranKeyboard(a.juz))
		}
	}
	return c.reply(ctx, req, msgOpenQuran, quranKeyboard(0))
}

// currentAssignment finds the participant's slot on the current Friday. A
// missing calendar yields a nil Friday; a missing slot yields a nil assignment.
func (c *Controller) currentAssignment(ctx context.Context, p *models.Person) (*models.Friday, *assignment, error) {
	friday, err := c.engine.CurrentFriday(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	readings, err := c.store.ReadingsForFriday(ctx, friday.FridayNumber)
	if err != nil {
		return nil, nil, err
	}
	a := findAssignment(readings, p)
	if a != nil {
		a.juz = c.rotation.SlotUnit(a.reading.JuzNumber, a.slot.Position)
	}
	return &friday, a, nil
}

// findAssignment prefers a slot bound to the person's id over one matching only by name
func findAssignment(readings []models.Reading, p *models.Person) *assignment {
	var byName *assignment
	for i := range readings {
		r := &readings[i]
		for _, s := range r.Slots() {
			if s.PersonID != nil && *s.PersonID == p.ID {
				return &assignment{reading: r, slot: s}
			}
			if byName == nil && s.PersonID == nil && s.Name != "" && s.Name == p.Name {
				byName = &assignment{reading: r, slot: s}
			}
		}
	}
	return byName
}
