package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"khatma/internal/models"
)

func (h *Handler) ListPersons(c *gin.Context) {
	persons, err := h.Store.ListPersons(c.Request.Context())
	if err != nil {
		handleStoreError(c, "failed to list persons", err)
		return
	}
	c.JSON(http.StatusOK, persons)
}

func (h *Handler) CreatePerson(c *gin.Context) {
	var req models.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	p := models.Person{Name: req.Name, GroupNumber: req.GroupNumber}
	if err := h.Store.CreatePerson(c.Request.Context(), &p); err != nil {
		handleStoreError(c, "failed to create person", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdatePerson renames a participant, rewriting their readings, and/or changes their group
func (h *Handler) UpdatePerson(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		if err := h.Store.RenamePerson(ctx, uint(id), name); err != nil {
			handleStoreError(c, "failed to rename person", err)
			return
		}
	}
	if req.GroupNumber != nil {
		if err := h.Store.UpdatePersonGroup(ctx, uint(id), *req.GroupNumber); err != nil {
			handleStoreError(c, "failed to update group", err)
			return
		}
	}

	p, err := h.Store.GetPerson(ctx, uint(id))
	if err != nil {
		handleStoreError(c, "failed to load person", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePerson removes a participant together with every reading they appear in
func (h *Handler) DeletePerson(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DeletePerson(c.Request.Context(), uint(id)); err != nil {
		handleStoreError(c, "failed to delete person", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetAdmin(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req models.SetAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.SetAdmin(ctx, uint(id), req.IsAdmin); err != nil {
		handleStoreError(c, "failed to update admin flag", err)
		return
	}
	p, err := h.Store.GetPerson(ctx, uint(id))
	if err != nil {
		handleStoreError(c, "failed to load person", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PersonAnalytics returns the status block of a participant by name
func (h *Handler) PersonAnalytics(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	c.JSON(http.StatusOK, h.Engine.Summary(c.Request.Context(), name))
}

// SearchReadings filters readings by exact participant name or by a substring
func (h *Handler) SearchReadings(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		readings []models.Reading
		err      error
	)
	switch person, q := strings.TrimSpace(c.Query("person")), strings.TrimSpace(c.Query("q")); {
	case person != "":
		readings, err = h.Store.ReadingsForPerson(ctx, person)
	case q != "":
		readings, err = h.Store.SearchReadings(ctx, q)
	default:
		readings, err = h.Store.AllReadings(ctx)
	}
	if err != nil {
		handleStoreError(c, "failed to load readings", err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

// UpdateSlot marks one slot of a reading done or not done
func (h *Handler) UpdateSlot(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	position, ok := intParam(c, "position")
	if !ok {
		return
	}
	if !models.ValidPosition(position) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position"})
		return
	}
	var req models.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.SetSlotStatus(ctx, uint(id), position, req.Done, h.Engine.Now()); err != nil {
		handleStoreError(c, "failed to update slot", err)
		return
	}
	r, err := h.Store.GetReading(ctx, uint(id))
	if err != nil {
		handleStoreError(c, "failed to load reading", err)
		return
	}
	c.JSON(http.StatusOK, r)
}
