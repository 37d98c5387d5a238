package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/workers"
)

var testNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	router  *gin.Engine
	habits  *repository.InMemoryHabitRepository
	entries *repository.InMemoryEntryRepository
	worker  *workers.StreakWorker
}

// newTestEnv wires the handlers over in-memory storage. Requests carry the
// caller in X-User-ID and an optional profile zone in X-Timezone.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	habits := repository.NewInMemoryHabitRepository()
	entries := repository.NewInMemoryEntryRepository()
	clock := func() time.Time { return testNow }
	worker := workers.NewStreakWorker(habits, entries, workers.WithClock(clock))

	habitSvc := services.NewHabitService(habits, "UTC")
	entrySvc := services.NewEntryService(entries, habits, worker)
	statsSvc := services.NewStatsService(habits, entries).WithClock(clock)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(middleware.ContextUserIDKey, userID)
			c.Set(middleware.ContextTimezoneKey, c.GetHeader("X-Timezone"))
		}
		c.Next()
	})

	api := r.Group("/api/v1")
	adapterHTTP.NewHabitHandler(habitSvc).RegisterRoutes(api)
	adapterHTTP.NewEntryHandler(entrySvc).RegisterRoutes(api)
	adapterHTTP.NewStatsHandler(statsSvc).RegisterRoutes(api)

	return &testEnv{router: r, habits: habits, entries: entries, worker: worker}
}

func (e *testEnv) do(method, path, userID, body string) *httptest.ResponseRecorder {
	return e.doWithTimezone(method, path, userID, "", body)
}

func (e *testEnv) doWithTimezone(method, path, userID, tz, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if tz != "" {
		req.Header.Set("X-Timezone", tz)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedHabit(t *testing.T, userID, title string, p domain.HabitParams) *domain.Habit {
	t.Helper()
	h, err := domain.NewHabit("", title, userID)
	require.NoError(t, err)
	if p.Title == "" {
		p.Title = title
	}
	require.NoError(t, h.Update(p))
	require.NoError(t, e.habits.Create(context.Background(), h))
	return h
}

func (e *testEnv) seedEntry(t *testing.T, h *domain.Habit, at time.Time, value int) *domain.HabitEntry {
	t.Helper()
	entry := domain.NewHabitEntry(h.ID, h.UserID, at, value)
	require.NoError(t, e.entries.Create(context.Background(), entry))
	return entry
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
