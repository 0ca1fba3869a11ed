package cli

import (
	"fmt"
	"strings"

	"khatma/internal/models"
	"khatma/internal/rotation"
	"khatma/internal/services"
)

type FridaysCmd struct {
	First int    `arg:"" help:"Number of the first Friday to create."`
	Start string `arg:"" help:"Date of the first Friday (YYYY-MM-DD)."`
	Count int    `help:"How many consecutive Fridays to create." default:"52"`
}

func (c *FridaysCmd) Run(ctx *Context) error {
	start, err := models.ParseDate(c.Start)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
	}
	fridays, err := ctx.Planner.CreateFridays(ctx.Ctx, c.First, start, c.Count)
	if err != nil {
		return err
	}
	last := fridays[len(fridays)-1]
	ctx.printf("Created %d fridays: #%d (%s) to #%d (%s)\n",
		len(fridays),
		fridays[0].FridayNumber, fridays[0].Date.Format(models.DateOnly),
		last.FridayNumber, last.Date.Format(models.DateOnly))
	return nil
}

type ReadingsCmd struct {
	Friday      int `arg:"" help:"Friday to create readings for."`
	FirstFriday int `help:"Friday number the rotation starts from." default:"0"`
}

func (c *ReadingsCmd) Run(ctx *Context) error {
	planner := ctx.Planner
	if c.FirstFriday > 0 {
		planner = services.NewPlanner(ctx.Store, rotation.Default().WithFirstFriday(c.FirstFriday))
	}
	readings, err := planner.GenerateReadings(ctx.Ctx, c.Friday)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		ctx.printf("No participants with a group, nothing created\n")
		return nil
	}
	for _, r := range readings {
		ctx.printf("Group %2d  khatma %d  juz %2d  %s\n", r.GroupNumber, r.KhatmaNumber, r.JuzNumber, members(r))
	}
	return nil
}

func members(r models.Reading) string {
	var names []string
	for _, s := range r.Slots() {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return strings.Join(names, ", ")
}

type RemindCmd struct {
	Friday int    `arg:"" optional:"" help:"Friday to remind for. Defaults to the current one."`
	Type   string `help:"Notification type to record." enum:"manual,reminder,scheduled" default:"manual"`
}

func (c *RemindCmd) Run(ctx *Context) error {
	if ctx.Telegram == nil {
		return errNoTelegram
	}
	friday := c.Friday
	if friday == 0 {
		var err error
		if friday, err = ctx.currentFriday(); err != nil {
			return err
		}
	}

	summary, err := ctx.Dispatcher.Dispatch(ctx.Ctx, friday, models.NotificationType(c.Type))
	ctx.printf("Friday %d: %d/%d sent, %d failed\n", friday, summary.Sent, summary.Total, summary.Failed)
	for _, e := range summary.Errors {
		ctx.printf("  %s: %s\n", e.Name, e.Error)
	}
	return err
}

type SettingCmd struct {
	Key   string `arg:"" help:"Setting key."`
	Value string `arg:"" optional:"" help:"New value. Omit to print the current one."`
}

func (c *SettingCmd) Run(ctx *Context) error {
	if c.Value == "" {
		v, err := ctx.Store.GetSetting(ctx.Ctx, c.Key)
		if err != nil {
			return err
		}
		ctx.printf("%s=%s\n", c.Key, v)
		return nil
	}
	value := strings.TrimSpace(c.Value)
	if err := models.ValidateSetting(c.Key, value); err != nil {
		return err
	}
	if err := ctx.Store.SetSetting(ctx.Ctx, c.Key, value); err != nil {
		return err
	}
	ctx.printf("%s=%s\n", c.Key, value)
	return nil
}

type WebhookCmd struct {
	URL string `arg:"" optional:"" help:"Public webhook URL to register. Omit to print the current webhook."`
}

func (c *WebhookCmd) Run(ctx *Context) error {
	if ctx.Telegram == nil {
		return errNoTelegram
	}
	if c.URL != "" {
		if err := ctx.Telegram.SetWebhook(ctx.Ctx, c.URL, ctx.WebhookSecret); err != nil {
			return err
		}
		ctx.printf("Webhook set to %s\n", c.URL)
	}

	info, err := ctx.Telegram.WebhookInfo(ctx.Ctx)
	if err != nil {
		return err
	}
	ctx.printf("url: %s\npending updates: %d\n", info.URL, info.PendingUpdateCount)
	if info.LastErrorMessage != "" {
		ctx.printf("last error: %s\n", info.LastErrorMessage)
	}
	return nil
}
