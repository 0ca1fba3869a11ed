package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook receives updates pushed by Telegram. Anything that gets
// past the secret check is acknowledged with 200 so Telegram does not retry.
func (h *Handler) TelegramWebhook(c *gin.Context) {
	if h.WebhookSecret != "" {
		got := c.GetHeader(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookSecret)) != 1 {
			slog.Warn("Webhook: bad secret token", "ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret token"})
			return
		}
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		slog.Warn("Webhook: undecodable update", "error", err)
		h.Metrics.ObserveUpdate("invalid", "error")
		c.Status(http.StatusOK)
		return
	}

	timeout := h.UpdateTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	// Finish the reply even if Telegram drops the connection
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), timeout)
	defer cancel()

	h.Bot.HandleUpdate(ctx, update)
	c.Status(http.StatusOK)
}
