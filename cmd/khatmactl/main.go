package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"khatma/internal/analytics"
	"khatma/internal/bot"
	"khatma/internal/cli"
	"khatma/internal/config"
	"khatma/internal/database"
	"khatma/internal/logging"
	"khatma/internal/rotation"
	"khatma/internal/services"
	"khatma/internal/storage/gormstore"
	"khatma/internal/telegram"
)

var CLI struct {
	Fridays  cli.FridaysCmd  `cmd:"" help:"Create a range of weekly Fridays."`
	Readings cli.ReadingsCmd `cmd:"" help:"Create a Friday's readings from the participants' groups."`
	Remind   cli.RemindCmd   `cmd:"" help:"Send reminders to pending participants now."`
	Setting  cli.SettingCmd  `cmd:"" help:"Show or change a setting."`
	Webhook  cli.WebhookCmd  `cmd:"" help:"Register or show the Telegram webhook."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("khatmactl"),
		kong.Description("Administration tool for the weekly khatma"),
		kong.UsageOnError(),
	)

	closer := logging.Setup()
	err := run(kctx)
	closer.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer database.Close(db)
	store := gormstore.New(db)

	model := rotation.Default()
	appCtx := &cli.Context{
		Ctx:           ctx,
		Store:         store,
		Engine:        analytics.NewEngine(store, cfg.Location),
		Planner:       services.NewPlanner(store, model),
		WebhookSecret: cfg.TelegramWebhookSecret,
		Out:           os.Stdout,
	}
	if cfg.TelegramToken != "" {
		client := telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPIEndpoint, cfg.TelegramSendTimeout)
		appCtx.Telegram = client
		appCtx.Dispatcher = services.NewDispatcher(store, client, nil, services.DispatcherConfig{
			SendDelay:   cfg.ReminderSendDelay,
			SendTimeout: cfg.TelegramSendTimeout,
			Rotation:    model,
			ReminderMarkup: func(r services.Recipient) *tgbotapi.InlineKeyboardMarkup {
				return bot.ReminderKeyboard(r.JuzNumber)
			},
		})
	}

	return kctx.Run(appCtx)
}
