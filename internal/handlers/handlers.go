// Package handlers is the HTTP surface: the Telegram webhook, health and
// metrics, and the admin API used by the dashboard.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"khatma/internal/analytics"
	"khatma/internal/auth"
	"khatma/internal/identity"
	"khatma/internal/metrics"
	"khatma/internal/models"
	"khatma/internal/services"
	"khatma/internal/storage"
	"khatma/internal/telegram"
)

// UpdateHandler processes one Telegram update
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Handler holds the dependencies of every route
type Handler struct {
	Store         storage.Store
	Engine        *analytics.Engine
	Dispatcher    *services.Dispatcher
	Planner       *services.Planner
	Bot           UpdateHandler
	Auth          *auth.Authenticator
	Health        *telegram.Health
	Metrics       *metrics.Metrics
	WebhookSecret string
	// UpdateTimeout bounds the handling of one webhook update
	UpdateTimeout time.Duration
}

// handleError provides a consistent way to handle and log errors
func handleError(c *gin.Context, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error(message, "path", c.FullPath(), "error", err)
	} else {
		slog.Warn(message, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": message})
}

// handleStoreError maps persistence errors onto HTTP statuses
func handleStoreError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		handleError(c, http.StatusNotFound, "not found", err)
	case errors.Is(err, storage.ErrConflict), errors.Is(err, identity.ErrAlreadyLinkedElsewhere):
		handleError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, storage.ErrStoreUnavailable):
		handleError(c, http.StatusServiceUnavailable, "database unavailable", err)
	case errors.Is(err, services.ErrDispatchInProgress):
		handleError(c, http.StatusConflict, "a dispatch for this friday is already running", err)
	case errors.Is(err, telegram.ErrChannelUnavailable):
		handleError(c, http.StatusBadGateway, "telegram unavailable", err)
	default:
		handleError(c, http.StatusInternalServerError, message, err)
	}
}

// HomeHandler handles requests to the root path "/"
func (h *Handler) HomeHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "khatma", "status": "running"})
}

// HealthHandler reports the database and the bot's health
func (h *Handler) HealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.Store.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		dbStatus = "unavailable"
	}

	var bot telegram.HealthStatus
	if h.Health != nil {
		bot = h.Health.Status()
	}

	status, code := "ok", http.StatusOK
	if dbStatus != "ok" {
		status, code = "unavailable", http.StatusServiceUnavailable
	} else if h.Health != nil && !bot.Healthy {
		status = "degraded"
	}
	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
		"bot":      bot,
	})
}

// Login exchanges a Google ID token for an admin JWT
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expires, info, err := h.Auth.Login(c.Request.Context(), req.IDToken)
	switch {
	case errors.Is(err, auth.ErrNotAdmin), errors.Is(err, auth.ErrUnverifiedEmail):
		handleError(c, http.StatusForbidden, "account is not allowed to administer", err)
		return
	case errors.Is(err, auth.ErrInvalidToken):
		handleError(c, http.StatusUnauthorized, "invalid id token", err)
		return
	case err != nil:
		handleError(c, http.StatusInternalServerError, "login failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expires,
		"email":      info.Email,
		"name":       info.Name,
	})
}
