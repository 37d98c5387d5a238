package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

const (
	dateLayout   = "2006-01-02"
	maxDaysRange = 366
)

type StatsHandler struct {
	svc *services.StatsService
}

func NewStatsHandler(svc *services.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats/weekly", h.GetWeeklyStats)
	r.GET("/stats/today", h.GetTodayProgress)
	r.GET("/stats/heatmap", h.GetHeatmap)
	r.GET("/habits/:id/streak", h.GetHabitStreak)
}

// GetWeeklyStats takes start_date and end_date as local dates (YYYY-MM-DD) in
// the request timezone. The default range is the seven days ending today.
func (h *StatsHandler) GetWeeklyStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, ok := requestLocation(c)
	if !ok {
		return
	}

	var endDate, startDate time.Time
	var err error

	if s := c.Query("end_date"); s == "" {
		endDate = h.svc.Now().In(loc)
	} else if endDate, err = time.ParseInLocation(dateLayout, s, loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date format, expected YYYY-MM-DD"})
		return
	}

	if s := c.Query("start_date"); s == "" {
		startDate = endDate.AddDate(0, 0, -6)
	} else if startDate, err = time.ParseInLocation(dateLayout, s, loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date format, expected YYYY-MM-DD"})
		return
	}

	if startDate.After(endDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date cannot be after end_date"})
		return
	}

	if streak.DayOf(startDate, loc).DaysUntil(streak.DayOf(endDate, loc))+1 > maxDaysRange {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date range too large, max 1 year allowed"})
		return
	}

	stats, err := h.svc.GetWeeklyStats(c.Request.Context(), domain.StatsInput{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		Location:  loc,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) GetTodayProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, ok := requestLocation(c)
	if !ok {
		return
	}

	progress, err := h.svc.GetTodayProgress(c.Request.Context(), userID, loc)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (h *StatsHandler) GetHeatmap(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	loc, ok := requestLocation(c)
	if !ok {
		return
	}

	weeks := services.DefaultHeatmapWeeks
	if s := c.Query("weeks"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > services.MaxHeatmapWeeks {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weeks must be between 1 and 53"})
			return
		}
		weeks = n
	}

	heatmap, err := h.svc.GetHeatmap(c.Request.Context(), userID, loc, weeks)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, heatmap)
}

// GetHabitStreak always works in the habit's own timezone; tz is ignored.
func (h *StatsHandler) GetHabitStreak(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.svc.GetHabitStreak(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
