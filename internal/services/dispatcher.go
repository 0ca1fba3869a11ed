package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/datatypes"

	"khatma/internal/metrics"
	"khatma/internal/models"
	"khatma/internal/rotation"
	"khatma/internal/storage"
	"khatma/internal/telegram"
)

// ErrDispatchInProgress is returned when a dispatch for the same Friday is already running
var ErrDispatchInProgress = errors.New("dispatch already in progress")

// DispatchStore is the persistence the dispatcher needs
type DispatchStore interface {
	GetFriday(ctx context.Context, number int) (*models.Friday, error)
	ReadingsForFriday(ctx context.Context, fridayNumber int) ([]models.Reading, error)
	ListPersons(ctx context.Context) ([]models.Person, error)
	ListLinkedPersons(ctx context.Context) ([]models.Person, error)
	ListAdmins(ctx context.Context) ([]models.Person, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateDispatchRun(ctx context.Context, run *models.DispatchRun) error
}

// Recipient is a linked participant with an outstanding assignment
type Recipient struct {
	PersonID     uint   `json:"person_id"`
	Name         string `json:"name"`
	ChatID       string `json:"chat_id"`
	FridayNumber int    `json:"friday_number"`
	GroupNumber  int    `json:"group_number"`
	JuzNumber    int    `json:"juz_number"`
	Position     int    `json:"position"`
}

// DispatchError is one failed delivery
type DispatchError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// DispatchSummary is the outcome of a dispatch run
type DispatchSummary struct {
	FridayNumber int             `json:"friday_number"`
	Total        int             `json:"total"`
	Sent         int             `json:"sent"`
	Failed       int             `json:"failed"`
	Errors       []DispatchError `json:"errors"`
}

// DispatcherConfig tunes pacing
type DispatcherConfig struct {
	SendDelay   time.Duration
	SendTimeout time.Duration
	Rotation    rotation.Model
	// ReminderMarkup builds the keyboard attached to a reminder; nil sends none
	ReminderMarkup func(Recipient) *tgbotapi.InlineKeyboardMarkup
}

// Dispatcher finds pending participants and sends them reminders, one
// delivery record per attempt
type Dispatcher struct {
	store     DispatchStore
	messenger telegram.Messenger
	metrics   *metrics.Metrics
	cfg       DispatcherConfig
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time

	mu      sync.Mutex
	running map[int]bool
}

// NewDispatcher creates a dispatcher. m may be nil.
func NewDispatcher(store DispatchStore, messenger telegram.Messenger, m *metrics.Metrics, cfg DispatcherConfig) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Rotation.UnitCount == 0 {
		cfg.Rotation = rotation.Default()
	}
	return &Dispatcher{
		store:     store,
		messenger: messenger,
		metrics:   m,
		cfg:       cfg,
		sleep:     sleepCtx,
		now:       time.Now,
		running:   make(map[int]bool),
	}
}

// PendingForFriday lists every linked participant whose slot on the Friday
// is not completed. Unlinked participants cannot be reached and are left out.
func (d *Dispatcher) PendingForFriday(ctx context.Context, fridayNumber int) ([]Recipient, error) {
	readings, err := d.store.ReadingsForFriday(ctx, fridayNumber)
	if err != nil {
		return nil, fmt.Errorf("pending for friday %d: %w", fridayNumber, err)
	}
	persons, err := d.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending for friday %d: %w", fridayNumber, err)
	}
	dir := newDirectory(persons)

	var out []Recipient
	for i := range readings {
		r := &readings[i]
		for _, slot := range r.Slots() {
			if slot.Done || slot.Name == "" {
				continue
			}
			p, ok := dir.resolve(slot)
			if !ok || !p.IsLinked() {
				continue
			}
			out = append(out, Recipient{
				PersonID:     p.ID,
				Name:         slot.Name,
				ChatID:       *p.TelegramChatID,
				FridayNumber: r.FridayNumber,
				GroupNumber:  r.GroupNumber,
				JuzNumber:    d.cfg.Rotation.SlotUnit(r.JuzNumber, slot.Position),
				Position:     slot.Position,
			})
		}
	}
	return out, nil
}

// Dispatch reminds every pending participant of the Friday. Individual
// failures are recorded and counted; only a channel outage stops the run and
// is returned as an error, after the records so far have been saved.
func (d *Dispatcher) Dispatch(ctx context.Context, fridayNumber int, kind models.NotificationType) (summary DispatchSummary, err error) {
	summary = DispatchSummary{FridayNumber: fridayNumber, Errors: []DispatchError{}}

	if !d.acquire(fridayNumber) {
		return summary, fmt.Errorf("friday %d: %w", fridayNumber, ErrDispatchInProgress)
	}
	defer d.release(fridayNumber)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatch panicked", "friday", fridayNumber, "panic", r)
			err = fmt.Errorf("dispatch friday %d: panic: %v", fridayNumber, r)
		}
	}()

	started := d.now()
	recipients, err := d.PendingForFriday(ctx, fridayNumber)
	if err != nil {
		return summary, err
	}
	summary.Total = len(recipients)

	dateLabel := fmt.Sprintf("الجمعة %d", fridayNumber)
	if f, err := d.store.GetFriday(ctx, fridayNumber); err == nil {
		dateLabel = f.Date.Format(models.DateOnly)
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.Warn("Dispatch: failed to load friday date", "friday", fridayNumber, "error", err)
	}

	var outage error
	for i, rcpt := range recipients {
		if i > 0 && d.cfg.SendDelay > 0 {
			if err := d.sleep(ctx, d.cfg.SendDelay); err != nil {
				outage = err
				break
			}
		}

		text := ReminderText(rcpt, dateLabel)
		var markup *tgbotapi.InlineKeyboardMarkup
		if d.cfg.ReminderMarkup != nil {
			markup = d.cfg.ReminderMarkup(rcpt)
		}

		sendErr := d.send(ctx, rcpt.ChatID, text, markup)
		d.record(ctx, fridayNumber, rcpt.Name, rcpt.ChatID, text, kind, sendErr)

		if sendErr != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, DispatchError{Name: rcpt.Name, Error: sendErr.Error()})
			if errors.Is(sendErr, telegram.ErrChannelUnavailable) || ctx.Err() != nil {
				outage = sendErr
				break
			}
			continue
		}
		summary.Sent++
	}

	d.saveRun(ctx, summary, kind, started, outage != nil)

	outcome := "ok"
	if outage != nil {
		outcome = "aborted"
	}
	d.metrics.ObserveDispatch(string(kind), outcome, d.now().Sub(started))
	slog.Info("Dispatch finished",
		"friday", fridayNumber,
		"type", kind,
		"total", summary.Total,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"aborted", outage != nil,
	)

	if outage != nil {
		return summary, fmt.Errorf("dispatch friday %d aborted after %d of %d: %w",
			fridayNumber, summary.Sent+summary.Failed, summary.Total, outage)
	}
	return summary, nil
}

// Broadcast sends text to every linked participant, or only to linked admins
func (d *Dispatcher) Broadcast(ctx context.Context, fridayNumber int, text string, adminsOnly bool) (DispatchSummary, error) {
	summary := DispatchSummary{FridayNumber: fridayNumber, Errors: []DispatchError{}}
	text = strings.TrimSpace(text)
	if text == "" {
		return summary, fmt.Errorf("broadcast: empty message")
	}

	var (
		persons []models.Person
		err     error
	)
	if adminsOnly {
		persons, err = d.store.ListAdmins(ctx)
	} else {
		persons, err = d.store.ListLinkedPersons(ctx)
	}
	if err != nil {
		return summary, fmt.Errorf("broadcast: %w", err)
	}

	sent := 0
	for _, p := range persons {
		if !p.IsLinked() {
			continue
		}
		if sent > 0 && d.cfg.SendDelay > 0 {
			if err := d.sleep(ctx, d.cfg.SendDelay); err != nil {
				return summary, err
			}
		}
		sent++
		summary.Total++

		sendErr := d.send(ctx, *p.TelegramChatID, text, nil)
		d.record(ctx, fridayNumber, p.Name, *p.TelegramChatID, text, models.NotificationManual, sendErr)
		if sendErr != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, DispatchError{Name: p.Name, Error: sendErr.Error()})
			if errors.Is(sendErr, telegram.ErrChannelUnavailable) {
				return summary, fmt.Errorf("broadcast aborted: %w", sendErr)
			}
			continue
		}
		summary.Sent++
	}
	return summary, nil
}

// NotifyAdmins sends text to every linked administrator without recording deliveries
func (d *Dispatcher) NotifyAdmins(ctx context.Context, text string) int {
	admins, err := d.store.ListAdmins(ctx)
	if err != nil {
		slog.Error("Failed to load admins", "error", err)
		return 0
	}
	delivered := 0
	for _, a := range admins {
		if !a.IsLinked() {
			continue
		}
		if err := d.send(ctx, *a.TelegramChatID, text, nil); err != nil {
			slog.Warn("Failed to notify admin", "admin", a.Name, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (d *Dispatcher) send(ctx context.Context, chatID, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	return d.messenger.Send(ctx, chatID, text, markup)
}

// record persists one delivery attempt; a failing log write never stops the run
func (d *Dispatcher) record(ctx context.Context, friday int, name, chatID, text string, kind models.NotificationType, sendErr error) {
	n := models.Notification{
		FridayNumber:     friday,
		RecipientName:    name,
		RecipientChatID:  chatID,
		MessageText:      text,
		NotificationType: kind,
		Status:           models.StatusSent,
	}
	if sendErr != nil {
		n.Status = models.StatusFailed
		msg := sendErr.Error()
		n.ErrorMessage = &msg
	} else {
		now := d.now()
		n.SentAt = &now
	}

	// Persist even when the caller's context was cancelled mid-send
	if err := d.store.CreateNotification(context.WithoutCancel(ctx), &n); err != nil {
		slog.Error("Failed to record notification", "recipient", name, "error", err)
	}
	d.metrics.ObserveDelivery(string(kind), string(n.Status))
}

func (d *Dispatcher) saveRun(ctx context.Context, s DispatchSummary, kind models.NotificationType, started time.Time, aborted bool) {
	errs, err := json.Marshal(s.Errors)
	if err != nil {
		errs = []byte("[]")
	}
	run := models.DispatchRun{
		FridayNumber:     s.FridayNumber,
		NotificationType: kind,
		Total:            s.Total,
		Sent:             s.Sent,
		Failed:           s.Failed,
		Errors:           datatypes.JSON(errs),
		Aborted:          aborted,
		StartedAt:        started,
		FinishedAt:       d.now(),
	}
	if err := d.store.CreateDispatchRun(context.WithoutCancel(ctx), &run); err != nil {
		slog.Error("Failed to record dispatch run", "friday", s.FridayNumber, "error", err)
	}
}

func (d *Dispatcher) acquire(friday int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running[friday] {
		return false
	}
	d.running[friday] = true
	return true
}

func (d *Dispatcher) release(friday int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.running, friday)
}

// ReminderText renders the reminder sent to one participant
func ReminderText(r Recipient, dateLabel string) string {
	var b strings.Builder
	b.WriteString("🔔 <b>تذكير بالورد الأسبوعي</b>\n\n")
	fmt.Fprintf(&b, "السلام عليكم %s،\n", html.EscapeString(r.Name))
	b.WriteString("لم تُسجَّل قراءتك لهذا الأسبوع بعد:\n\n")
	fmt.Fprintf(&b, "📖 <b>الجزء:</b> %d (%s)\n", r.JuzNumber, rotation.JuzName(r.JuzNumber))
	fmt.Fprintf(&b, "👥 <b>المجموعة:</b> %d\n", r.GroupNumber)
	fmt.Fprintf(&b, "📅 <b>الجمعة:</b> %d - %s\n\n", r.FridayNumber, dateLabel)
	b.WriteString("بعد إتمام القراءة أرسل /تم أو اضغط زر «تمت القراءة».\n")
	b.WriteString("جزاك الله خيراً 🤲")
	return b.String()
}

// directory resolves slots to persons: by id first, then by name when the name is unique
type directory struct {
	byID   map[uint]*models.Person
	byName map[string]*models.Person
	dupes  map[string]bool
}

func newDirectory(persons []models.Person) directory {
	d := directory{
		byID:   make(map[uint]*models.Person, len(persons)),
		byName: make(map[string]*models.Person, len(persons)),
		dupes:  make(map[string]bool),
	}
	for i := range persons {
		p := &persons[i]
		d.byID[p.ID] = p
		if _, seen := d.byName[p.Name]; seen {
			d.dupes[p.Name] = true
		}
		d.byName[p.Name] = p
	}
	return d
}

func (d directory) resolve(slot models.Slot) (*models.Person, bool) {
	if slot.PersonID != nil {
		p, ok := d.byID[*slot.PersonID]
		return p, ok
	}
	if d.dupes[slot.Name] {
		return nil, false
	}
	p, ok := d.byName[slot.Name]
	return p, ok
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
