package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

const defaultEntryWindow = 30 * 24 * time.Hour

type EntryHandler struct {
	svc *services.EntryService
}

func NewEntryHandler(svc *services.EntryService) *EntryHandler {
	return &EntryHandler{
		svc: svc,
	}
}

type createEntryRequest struct {
	ID             string    `json:"id"`
	HabitID        string    `json:"habit_id" binding:"required"`
	CompletionDate time.Time `json:"completion_date" binding:"required"`
	Value          int       `json:"value"`
	Notes          string    `json:"notes"`
}

type updateEntryRequest struct {
	Value   int    `json:"value"`
	Notes   string `json:"notes"`
	Version int    `json:"version" binding:"required"`
}

type toggleEntryRequest struct {
	HabitID string     `json:"habit_id" binding:"required"`
	At      *time.Time `json:"at"`
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/entries")
	{
		entries.POST("", h.Create)
		entries.POST("/toggle", h.Toggle)
		entries.GET("", h.ListByHabit)
		entries.GET("/sync", h.Sync)
		entries.PUT("/:id", h.Update)
		entries.DELETE("/:id", h.Delete)
	}
}

func (h *EntryHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	entry, err := h.svc.Create(c.Request.Context(), services.CreateEntryInput{
		ID:             req.ID,
		HabitID:        req.HabitID,
		UserID:         userID,
		CompletionDate: req.CompletionDate,
		Value:          req.Value,
		Notes:          req.Notes,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Toggle completes or clears the habit's local day containing "at" (default now).
func (h *EntryHandler) Toggle(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req toggleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	at := time.Now().UTC()
	if req.At != nil {
		at = *req.At
	}

	res, err := h.svc.Toggle(c.Request.Context(), req.HabitID, userID, at)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completed": res.Completed,
		"entry":     res.Entry,
		"removed":   res.Removed,
	})
}

func (h *EntryHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	entry, err := h.svc.Update(c.Request.Context(), services.UpdateEntryInput{
		ID:      c.Param("id"),
		UserID:  userID,
		Value:   req.Value,
		Notes:   req.Notes,
		Version: req.Version,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *EntryHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *EntryHandler) ListByHabit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habitID := c.Query("habit_id")
	if habitID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "habit_id is required"})
		return
	}

	to := time.Now().UTC()
	from := to.Add(-defaultEntryWindow)

	if t := c.Query("to"); t != "" {
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to format, use RFC3339"})
			return
		}
		to = parsed
	}
	if f := c.Query("from"); f != "" {
		parsed, err := time.Parse(time.RFC3339, f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from format, use RFC3339"})
			return
		}
		from = parsed
	}

	list, err := h.svc.ListByHabitID(c.Request.Context(), habitID, userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *EntryHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	since, ok := parseSince(c, "since")
	if !ok {
		return
	}

	changes, err := h.svc.GetDelta(c.Request.Context(), userID, since)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   changes,
		"timestamp": time.Now().UTC(),
	})
}
