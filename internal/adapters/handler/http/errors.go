package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var validationErrors = []error{
	domain.ErrHabitTitleEmpty,
	domain.ErrHabitTitleTooLong,
	domain.ErrHabitDescTooLong,
	domain.ErrInvalidColor,
	domain.ErrInvalidWeekdays,
	domain.ErrInvalidTarget,
	domain.ErrInvalidTimesPerWeek,
	domain.ErrInvalidFrequencyType,
	domain.ErrInvalidTimezone,
	domain.ErrInvalidHabitType,
	domain.ErrInvalidReminder,
	domain.ErrHabitArchived,
	domain.ErrInvalidEntry,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func handleError(c *gin.Context, err error) {
	switch {
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized access"})

	case errors.Is(err, domain.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})

	case errors.Is(err, domain.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})

	case errors.Is(err, domain.ErrHabitConflict), errors.Is(err, domain.ErrEntryConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "version conflict",
			"message": "data has been modified elsewhere, please sync",
		})

	default:
		log.Printf("[ERROR] Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// parseSince reads an optional RFC3339 query parameter; missing means the zero time.
func parseSince(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + " format, use RFC3339"})
		return time.Time{}, false
	}
	return since, true
}

// requestLocation resolves the zone of a stats request: the tz query parameter,
// then the user's profile timezone, then UTC.
func requestLocation(c *gin.Context) (*time.Location, bool) {
	name := c.Query("tz")
	if name == "" {
		name = middleware.GetTimezone(c)
	}
	if name == "" {
		return time.UTC, true
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidTimezone.Error()})
		return nil, false
	}
	return loc, true
}
