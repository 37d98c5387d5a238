// Package streak computes habit streaks, completion rates and schedules from a
// frequency rule and a list of completion instants.
//
// Every function is a pure computation over its arguments. The reference
// instant is always passed in by the caller, and day boundaries follow the
// wall clock of the Calendar's location, so results never depend on the host
// clock or time zone.
package streak

import (
	"time"
)

// MaxWeekWalk bounds the backward walk of weekly streaks (about ten years).
const MaxWeekWalk = 520

// Calendar binds the engine to a time zone. The zero value uses UTC.
// A Calendar holds no mutable state and is safe for concurrent use.
type Calendar struct {
	Location *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Location: loc}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Day returns the local calendar day of t.
func (c Calendar) Day(t time.Time) Day {
	return DayOf(t, c.loc())
}

// DayKey returns the "YYYY-MM-DD" key of the local day of t.
func (c Calendar) DayKey(t time.Time) string {
	return c.Day(t).Key()
}

// CurrentStreak returns the number of consecutive satisfied units (days, or
// weeks for times-per-week rules) ending at or just before the reference day.
// A scheduled reference day that is not completed yet is treated as pending
// and does not break the streak.
func (c Calendar) CurrentStreak(completions []time.Time, r Rule, reference time.Time) int {
	if len(completions) == 0 {
		return 0
	}
	set := NewDaySet(completions, c.loc())
	today := c.Day(reference)

	if r.weekBucketed() {
		return currentWeekStreak(set, r.Count, today)
	}

	earliest, _, _ := set.Bounds()

	cursor := today
	if IsScheduled(cursor, r) && !set.Has(cursor) {
		cursor = cursor.AddDays(-1)
	}

	streak := 0
	for !cursor.Before(earliest) {
		if !IsScheduled(cursor, r) {
			cursor = cursor.AddDays(-1)
			continue
		}
		if !set.Has(cursor) {
			break
		}
		streak++
		cursor = cursor.AddDays(-1)
	}
	return streak
}

func currentWeekStreak(set DaySet, required int, today Day) int {
	week := WeekStart(today)
	if CountCompletionsInWeek(set, week) < required {
		week = week.AddDays(-7)
	}

	streak := 0
	for streak < MaxWeekWalk && CountCompletionsInWeek(set, week) >= required {
		streak++
		week = week.AddDays(-7)
	}
	return streak
}

// LongestStreak returns the longest run of satisfied units over the whole
// completion history.
func (c Calendar) LongestStreak(completions []time.Time, r Rule) int {
	if len(completions) == 0 {
		return 0
	}
	set := NewDaySet(completions, c.loc())
	first, last, _ := set.Bounds()

	if r.weekBucketed() {
		return longestWeekStreak(set, r.Count, first, last)
	}

	longest, run := 0, 0
	for _, d := range ScheduledDaysInWindow(r, first, last) {
		if set.Has(d) {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

func longestWeekStreak(set DaySet, required int, first, last Day) int {
	longest, run := 0, 0
	lastWeek := WeekStart(last)
	for week := WeekStart(first); !week.After(lastWeek); week = week.AddDays(7) {
		if CountCompletionsInWeek(set, week) >= required {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

// IsAtRisk reports whether the reference day is scheduled and the latest
// completion did not happen on it. lastCompletion is nil when the habit was
// never completed.
//
// Times-per-week rules schedule every day, so they are at risk on any day
// without a completion regardless of the week's progress.
func (c Calendar) IsAtRisk(lastCompletion *time.Time, r Rule, reference time.Time) bool {
	today := c.Day(reference)
	if !IsScheduled(today, r) {
		return false
	}
	if lastCompletion == nil {
		return true
	}
	return c.Day(*lastCompletion) != today
}

// CompletionRate returns the share of scheduled days completed in the
// windowDays days ending at and including the reference day, in [0, 1].
// Times-per-week rules are rated per day like daily rules. An empty window
// yields 0.
func (c Calendar) CompletionRate(completions []time.Time, r Rule, windowDays int, reference time.Time) float64 {
	end := c.Day(reference)
	start := end.AddDays(-(windowDays - 1))
	scheduled := ScheduledDaysInWindow(r, start, end)
	if len(scheduled) == 0 {
		return 0
	}

	set := NewDaySet(completions, c.loc())
	completed := 0
	for _, d := range scheduled {
		if set.Has(d) {
			completed++
		}
	}
	return float64(completed) / float64(len(scheduled))
}
