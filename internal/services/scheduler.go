package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"khatma/internal/models"
	"khatma/internal/storage"
)

// SettingsReader reads the persisted toggles the scheduler is driven by
type SettingsReader interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// TickResult describes what one scheduled fire did
type TickResult struct {
	Skipped bool
	Reason  string
	Summary DispatchSummary
}

// Scheduler fires the weekly automatic reminders. It owns no state besides
// the cron runner: every tick re-reads the settings.
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	settings   SettingsReader
	dispatcher *Dispatcher
	email      *EmailService
	timeout    time.Duration

	mu      sync.Mutex
	started bool
}

// NewScheduler validates the cron spec and prepares the runner in loc
func NewScheduler(spec string, loc *time.Location, settings SettingsReader, dispatcher *Dispatcher, email *EmailService) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		spec:       spec,
		settings:   settings,
		dispatcher: dispatcher,
		email:      email,
		timeout:    30 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing in the background
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	slog.Info("Reminder scheduler started", "schedule", s.spec, "next", s.Next())
}

// Stop halts the timer and waits for a running tick, or for ctx
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		slog.Info("Reminder scheduler stopped")
	case <-ctx.Done():
		slog.Warn("Reminder scheduler stop timed out", "error", ctx.Err())
	}
}

// Next is the next fire time, zero when not started
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.Tick(ctx); err != nil {
		slog.Error("Scheduled reminders failed", "error", err)
	}
}

// Tick runs one scheduled cycle: check the toggle, dispatch for the
// configured Friday, then report to admins.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	enabled, err := s.settings.GetSetting(ctx, models.SettingAutoReminders)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return TickResult{Skipped: true, Reason: "settings unavailable"}, fmt.Errorf("read %s: %w", models.SettingAutoReminders, err)
	}
	if strings.TrimSpace(enabled) != "true" {
		slog.Info("Automatic reminders disabled, skipping")
		return TickResult{Skipped: true, Reason: "disabled"}, nil
	}

	raw, err := s.settings.GetSetting(ctx, models.SettingCurrentFriday)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return TickResult{Skipped: true, Reason: "settings unavailable"}, fmt.Errorf("read %s: %w", models.SettingCurrentFriday, err)
	}
	friday, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || convErr != nil || friday <= 0 {
		slog.Warn("No valid current Friday configured, skipping reminders", "value", raw)
		return TickResult{Skipped: true, Reason: "no current friday"}, nil
	}

	slog.Info("Running automatic reminders", "friday", friday)
	summary, dispatchErr := s.dispatcher.Dispatch(ctx, friday, models.NotificationScheduled)
	if errors.Is(dispatchErr, ErrDispatchInProgress) {
		return TickResult{Skipped: true, Reason: "in progress"}, dispatchErr
	}
	s.report(ctx, summary, dispatchErr)
	return TickResult{Summary: summary}, dispatchErr
}

func (s *Scheduler) report(ctx context.Context, summary DispatchSummary, dispatchErr error) {
	text := ReportText(summary)
	if dispatchErr != nil {
		text += "\n\n⚠️ توقف الإرسال: تعذر الوصول إلى تيليجرام"
	}
	n := s.dispatcher.NotifyAdmins(context.WithoutCancel(ctx), text)
	slog.Info("Reminder report sent to admins", "admins", n)

	if s.email.Enabled() {
		subject, plain, html := ReportEmail(summary)
		if err := s.email.SendReport(context.WithoutCancel(ctx), subject, plain, html); err != nil {
			slog.Error("Failed to email reminder report", "error", err)
		}
	}
}

// cronLogger routes cron's own logging through slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
