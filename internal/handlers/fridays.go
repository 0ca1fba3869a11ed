package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"khatma/internal/models"
	"khatma/internal/rotation"
	"khatma/internal/services"
)

// intParam reads a positive integer path parameter, answering 400 when it is not one
func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

// limitQuery reads ?limit=, defaulting to def and capped at max
func limitQuery(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ListFridays returns every Friday with the current one marked
func (h *Handler) ListFridays(c *gin.Context) {
	ctx := c.Request.Context()
	fridays, err := h.Store.ListFridays(ctx)
	if err != nil {
		handleStoreError(c, "failed to list fridays", err)
		return
	}
	current := 0
	if f, err := h.Engine.CurrentFriday(ctx); err == nil {
		current = f.FridayNumber
	}
	c.JSON(http.StatusOK, gin.H{"fridays": fridays, "current": current})
}

// CurrentFriday returns the Friday in progress and the one after it
func (h *Handler) CurrentFriday(c *gin.Context) {
	ctx := c.Request.Context()
	current, err := h.Engine.CurrentFriday(ctx)
	if err != nil {
		handleStoreError(c, "failed to resolve current friday", err)
		return
	}
	resp := gin.H{"current": current}
	if next, err := h.Engine.NextFriday(ctx, current.FridayNumber); err == nil {
		resp["next"] = next
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetFriday(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	f, err := h.Store.GetFriday(c.Request.Context(), number)
	if err != nil {
		handleStoreError(c, "failed to load friday", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) CreateFriday(c *gin.Context) {
	var req models.CreateFridayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	f := models.Friday{FridayNumber: req.FridayNumber, Date: date, DateHijri: req.DateHijri}
	if err := h.Store.CreateFridays(c.Request.Context(), []models.Friday{f}); err != nil {
		handleStoreError(c, "failed to create friday", err)
		return
	}
	created, err := h.Store.GetFriday(c.Request.Context(), req.FridayNumber)
	if err != nil {
		handleStoreError(c, "failed to load friday", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateFriday corrects the calendar date of a Friday
func (h *Handler) UpdateFriday(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var req models.UpdateFridayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.UpdateFridayDate(ctx, number, date, req.DateHijri); err != nil {
		handleStoreError(c, "failed to update friday", err)
		return
	}
	f, err := h.Store.GetFriday(ctx, number)
	if err != nil {
		handleStoreError(c, "failed to load friday", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) FridayReadings(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	readings, err := h.Store.ReadingsForFriday(c.Request.Context(), number)
	if err != nil {
		handleStoreError(c, "failed to load readings", err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

func (h *Handler) FridayStats(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Engine.FridayStats(c.Request.Context(), number))
}

// FridayPending lists the linked participants a dispatch would remind
func (h *Handler) FridayPending(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	pending, err := h.Dispatcher.PendingForFriday(c.Request.Context(), number)
	if err != nil {
		handleStoreError(c, "failed to load pending participants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friday_number": number, "count": len(pending), "pending": pending})
}

// GenerateReadings creates the Friday's readings from the participants' groups
func (h *Handler) GenerateReadings(c *gin.Context) {
	number, ok := intParam(c, "number")
	if !ok {
		return
	}
	var req models.GenerateReadingsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	planner := h.Planner
	if req.FirstFriday > 0 {
		planner = services.NewPlanner(h.Store, rotation.Default().WithFirstFriday(req.FirstFriday))
	}
	readings, err := planner.GenerateReadings(c.Request.Context(), number)
	if err != nil {
		handleStoreError(c, "failed to generate readings", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"friday_number": number, "groups": len(readings), "readings": readings})
}

func (h *Handler) AllFridaysStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.AllFridaysStats(c.Request.Context()))
}

func (h *Handler) TopReaders(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.TopReaders(c.Request.Context(), limitQuery(c, 10, 100)))
}
