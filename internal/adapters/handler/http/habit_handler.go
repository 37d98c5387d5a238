package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type createHabitRequest struct {
	ID            string `json:"id"`
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Color         string `json:"color"`
	Icon          string `json:"icon"`
	Type          string `json:"type"`
	ReminderTime  string `json:"reminder_time"`
	Unit          string `json:"unit"`
	TargetValue   int    `json:"target_value"`
	FrequencyType string `json:"frequency_type"`
	Weekdays      []int  `json:"weekdays"`
	TimesPerWeek  int    `json:"times_per_week"`
	Timezone      string `json:"timezone"`
}

// updateHabitRequest distinguishes absent fields (nil) from zero values.
type updateHabitRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Color         *string `json:"color"`
	Icon          *string `json:"icon"`
	Type          *string `json:"type"`
	ReminderTime  *string `json:"reminder_time"`
	Unit          *string `json:"unit"`
	TargetValue   *int    `json:"target_value"`
	FrequencyType *string `json:"frequency_type"`
	Weekdays      []int   `json:"weekdays"`
	TimesPerWeek  *int    `json:"times_per_week"`
	Timezone      *string `json:"timezone"`
	SortOrder     *int    `json:"sort_order"`
	Archived      *bool   `json:"archived"`
	Version       int     `json:"version"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/sync", h.Sync)
		habits.GET("/:id", h.Get)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
	}
}

func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = middleware.GetTimezone(c)
	}

	habit, err := h.svc.Create(c.Request.Context(), services.CreateHabitInput{
		ID:            req.ID,
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		Color:         req.Color,
		Icon:          req.Icon,
		Type:          req.Type,
		ReminderTime:  req.ReminderTime,
		Unit:          req.Unit,
		TargetValue:   req.TargetValue,
		FrequencyType: req.FrequencyType,
		Weekdays:      req.Weekdays,
		TimesPerWeek:  req.TimesPerWeek,
		Timezone:      timezone,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habit, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	lastSync, ok := parseSince(c, "last_sync")
	if !ok {
		return
	}

	deltas, err := h.svc.GetDelta(c.Request.Context(), userID, lastSync)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changes":   deltas,
		"timestamp": time.Now().UTC(),
	})
}

func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), services.UpdateHabitInput{
		ID:            c.Param("id"),
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		Color:         req.Color,
		Icon:          req.Icon,
		Type:          req.Type,
		ReminderTime:  req.ReminderTime,
		Unit:          req.Unit,
		TargetValue:   req.TargetValue,
		FrequencyType: req.FrequencyType,
		Weekdays:      req.Weekdays,
		TimesPerWeek:  req.TimesPerWeek,
		Timezone:      req.Timezone,
		SortOrder:     req.SortOrder,
		Archived:      req.Archived,
		Version:       req.Version,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Delete(c *gin.Context) {
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
