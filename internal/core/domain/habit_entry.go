package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

var (
	ErrInvalidEntry = errors.New("invalid habit entry data")
)

// HabitEntry records progress on a habit at a point in time. For boolean
// habits a single entry with value 1 is a completion; numeric and timer habits
// add up the values of a day against the habit's target.
type HabitEntry struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`
	UserID  string `json:"user_id" db:"user_id"`

	CompletionDate time.Time `json:"completion_date" db:"completion_date"`
	Value          int       `json:"value" db:"value"`
	Notes          string    `json:"notes" db:"notes"`

	Version   int        `json:"version" db:"version"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func NewHabitEntry(habitID, userID string, date time.Time, value int) *HabitEntry {
	now := time.Now().UTC()

	return &HabitEntry{
		HabitID:        habitID,
		UserID:         userID,
		CompletionDate: date.UTC(),
		Value:          value,

		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (e *HabitEntry) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return fmt.Errorf("%w: habit_id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidEntry)
	}
	if e.Value < 0 {
		return fmt.Errorf("%w: value cannot be negative", ErrInvalidEntry)
	}
	if e.CompletionDate.IsZero() {
		return fmt.Errorf("%w: completion_date is required", ErrInvalidEntry)
	}
	return nil
}

// CompletionInstants turns a habit's entries into the completion instants the
// streak engine works on: one instant per local day whose summed value reaches
// the habit's target, namely the first entry of that day. Soft-deleted entries
// and entries of other habits are ignored. The result is sorted ascending.
func CompletionInstants(h *Habit, entries []*HabitEntry) []time.Time {
	target := max(h.TargetValue, 1)
	cal := h.Calendar()

	type dayTotal struct {
		first time.Time
		total int
	}
	days := make(map[streak.Day]*dayTotal)

	for _, e := range entries {
		if e == nil || e.DeletedAt != nil || e.HabitID != h.ID {
			continue
		}
		day := cal.Day(e.CompletionDate)
		dt, ok := days[day]
		if !ok {
			dt = &dayTotal{first: e.CompletionDate}
			days[day] = dt
		}
		if e.CompletionDate.Before(dt.first) {
			dt.first = e.CompletionDate
		}
		dt.total += e.Value
	}

	instants := make([]time.Time, 0, len(days))
	for _, dt := range days {
		if dt.total >= target {
			instants = append(instants, dt.first)
		}
	}

	sort.Slice(instants, func(i, j int) bool {
		return instants[i].Before(instants[j])
	})
	return instants
}
