package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"khatma/internal/models"
	"khatma/internal/storage"
	"khatma/internal/telegram"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	list, err := h.Store.ListNotifications(c.Request.Context(), limitQuery(c, 100, 1000))
	if err != nil {
		handleStoreError(c, "failed to list notifications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListDispatchRuns(c *gin.Context) {
	runs, err := h.Store.ListDispatchRuns(c.Request.Context(), limitQuery(c, 20, 200))
	if err != nil {
		handleStoreError(c, "failed to list dispatch runs", err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// targetFriday picks the Friday an admin action applies to: the requested
// one, else the current_friday_number setting, else the calendar's current Friday
func (h *Handler) targetFriday(c *gin.Context, requested int) (int, bool) {
	if requested > 0 {
		return requested, true
	}
	ctx := c.Request.Context()
	if v, err := h.Store.GetSetting(ctx, models.SettingCurrentFriday); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n, true
		}
	}
	f, err := h.Engine.CurrentFriday(ctx)
	if err != nil {
		handleStoreError(c, "failed to resolve current friday", err)
		return 0, false
	}
	return f.FridayNumber, true
}

// Dispatch sends reminders to every pending linked participant of a Friday
func (h *Handler) Dispatch(c *gin.Context) {
	var req models.DispatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	friday, ok := h.targetFriday(c, req.FridayNumber)
	if !ok {
		return
	}

	summary, err := h.Dispatcher.Dispatch(c.Request.Context(), friday, models.NotificationReminder)
	if errors.Is(err, telegram.ErrChannelUnavailable) {
		slog.Error("Dispatch aborted", "friday", friday, "sent", summary.Sent, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "telegram unavailable, dispatch aborted", "summary": summary})
		return
	}
	if err != nil {
		handleStoreError(c, "dispatch failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Broadcast sends a custom message to every linked participant or only to admins
func (h *Handler) Broadcast(c *gin.Context) {
	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	friday, ok := h.targetFriday(c, req.FridayNumber)
	if !ok {
		return
	}

	summary, err := h.Dispatcher.Broadcast(c.Request.Context(), friday, req.Message, req.AdminsOnly)
	if err != nil {
		handleStoreError(c, "broadcast failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetSetting(c *gin.Context) {
	key := c.Param("key")
	value, err := h.Store.GetSetting(c.Request.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "setting not found"})
		return
	}
	if err != nil {
		handleStoreError(c, "failed to load setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// SetSetting upserts a setting. Known keys are validated.
func (h *Handler) SetSetting(c *gin.Context) {
	key := c.Param("key")
	var req models.SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value := strings.TrimSpace(req.Value)
	if err := models.ValidateSetting(key, value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.SetSetting(c.Request.Context(), key, value); err != nil {
		handleStoreError(c, "failed to save setting", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}
