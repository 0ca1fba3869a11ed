// Package telegram is the messaging channel: sending messages and
// callback answers through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrChannelUnavailable means the Bot API cannot be reached at all
	ErrChannelUnavailable = errors.New("telegram unavailable")
	// ErrDeliveryFailed means Telegram refused one message
	ErrDeliveryFailed = errors.New("telegram delivery failed")
)

const callbackTimeout = 3 * time.Second

// Messenger sends messages to chats. AnswerCallback is best effort.
type Messenger interface {
	Send(ctx context.Context, chatID, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID string)
}

// Client is a Messenger backed by the Bot API
type Client struct {
	bot *tgbotapi.BotAPI
}

var _ Messenger = (*Client)(nil)

// NewClient builds a client without calling getMe, so startup does not depend
// on Telegram being reachable. An empty endpoint uses the public Bot API.
func NewClient(token, endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot.SetAPIEndpoint(endpoint)
	return &Client{bot: bot}
}

// Send delivers an HTML message, optionally with an inline keyboard
func (c *Client) Send(ctx context.Context, chatID, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid chat id %q", ErrDeliveryFailed, chatID)
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	_, err = call(ctx, func() (tgbotapi.Message, error) { return c.bot.Send(msg) })
	return classify(err)
}

// AnswerCallback acknowledges a button press; failures are only logged
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	_, err := call(ctx, func() (*tgbotapi.APIResponse, error) {
		return c.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	})
	if err != nil {
		slog.Debug("Telegram: callback answer failed", "callback_id", callbackID, "error", err)
	}
}

// Me returns the bot's own account
func (c *Client) Me(ctx context.Context) (tgbotapi.User, error) {
	u, err := call(ctx, c.bot.GetMe)
	return u, classify(err)
}

// WebhookInfo returns the webhook Telegram currently delivers to
func (c *Client) WebhookInfo(ctx context.Context) (tgbotapi.WebhookInfo, error) {
	info, err := call(ctx, c.bot.GetWebhookInfo)
	return info, classify(err)
}

// SetWebhook points Telegram at link, with an optional secret token header
func (c *Client) SetWebhook(ctx context.Context, link, secret string) error {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid webhook url %q", link)
	}
	params := tgbotapi.Params{
		"url":             u.String(),
		"allowed_updates": `["message","callback_query"]`,
	}
	params.AddNonEmpty("secret_token", secret)

	_, err = call(ctx, func() (*tgbotapi.APIResponse, error) {
		return c.bot.MakeRequest("setWebhook", params)
	})
	return classify(err)
}

// call runs fn and gives up when ctx is done; the request itself is bounded
// by the HTTP client timeout
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// classify maps transport and API errors onto the package sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code >= 500 {
			return fmt.Errorf("%w: %d %s", ErrChannelUnavailable, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%w: %d %s", ErrDeliveryFailed, apiErr.Code, apiErr.Message)
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	// A single timeout fails the message, a refused connection fails the channel
	var urlErr *url.Error
	if errors.As(err, &urlErr) && !urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
}
