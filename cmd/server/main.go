package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"khatma/internal/analytics"
	"khatma/internal/auth"
	"khatma/internal/bot"
	"khatma/internal/config"
	"khatma/internal/database"
	"khatma/internal/handlers"
	"khatma/internal/identity"
	"khatma/internal/logging"
	"khatma/internal/metrics"
	"khatma/internal/rotation"
	"khatma/internal/services"
	"khatma/internal/storage/gormstore"
	"khatma/internal/telegram"
)

func main() {
	closer := logging.Setup()
	defer closer.Close()

	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.Info("Configuration loaded", "config", cfg)

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer database.Close(db)
	store := gormstore.New(db)

	model := rotation.Default()
	m := metrics.New()
	health := telegram.NewHealth()
	client := telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPIEndpoint, cfg.TelegramSendTimeout)
	engine := analytics.NewEngine(store, cfg.Location)

	dispatcher := services.NewDispatcher(store, client, m, services.DispatcherConfig{
		SendDelay:   cfg.ReminderSendDelay,
		SendTimeout: cfg.TelegramSendTimeout,
		Rotation:    model,
		ReminderMarkup: func(r services.Recipient) *tgbotapi.InlineKeyboardMarkup {
			return bot.ReminderKeyboard(r.JuzNumber)
		},
	})

	email := services.NewEmailService(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName, cfg.AdminReportEmails)
	scheduler, err := services.NewScheduler(cfg.ReminderSchedule, cfg.Location, store, dispatcher, email)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return err
	}

	controller := bot.NewController(client, identity.NewLinker(store), store, engine,
		bot.WithHealth(health),
		bot.WithMetrics(m),
		bot.WithRotation(model),
	)

	h := &handlers.Handler{
		Store:         store,
		Engine:        engine,
		Dispatcher:    dispatcher,
		Planner:       services.NewPlanner(store, model),
		Bot:           controller,
		Auth:          auth.NewAuthenticator(cfg.GoogleClientID, cfg.AdminEmails, tokens),
		Health:        health,
		Metrics:       m,
		WebhookSecret: cfg.TelegramWebhookSecret,
	}
	router, err := handlers.NewRouter(h, handlers.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies: []string{"127.0.0.1"},
	})
	if err != nil {
		return err
	}

	if me, err := client.Me(ctx); err != nil {
		slog.Warn("Telegram getMe failed, continuing", "error", err)
	} else {
		slog.Info("Telegram bot ready", "username", me.UserName)
	}

	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	scheduler.Stop(shutdownCtx)
	slog.Info("Server stopped")
	return nil
}
