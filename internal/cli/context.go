// Package cli implements the khatmactl subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"khatma/internal/analytics"
	"khatma/internal/models"
	"khatma/internal/services"
	"khatma/internal/storage"
	"khatma/internal/storage/gormstore"
	"khatma/internal/telegram"
)

// Context is handed to every command's Run
type Context struct {
	Ctx        context.Context
	Store      *gormstore.Store
	Engine     *analytics.Engine
	Planner    *services.Planner
	Dispatcher *services.Dispatcher
	// Telegram is nil when no bot token is configured
	Telegram      *telegram.Client
	WebhookSecret string
	Out           io.Writer
}

var errNoTelegram = errors.New("TELEGRAM_BOT_TOKEN is not set")

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// currentFriday resolves the Friday to act on when none was given
func (c *Context) currentFriday() (int, error) {
	v, err := c.Store.GetSetting(c.Ctx, models.SettingCurrentFriday)
	switch {
	case err == nil:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return 0, err
	}
	f, err := c.Engine.CurrentFriday(c.Ctx)
	if err != nil {
		return 0, err
	}
	return f.FridayNumber, nil
}
