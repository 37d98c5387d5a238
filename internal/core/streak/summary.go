package streak

import (
	"math"
	"time"
)

// Completion windows offered by the progress views.
const (
	Window7  = 7
	Window30 = 30
	Window90 = 90
)

// Milestone tiers celebrated when a current streak reaches them exactly.
var MilestoneTiers = []int{7, 30, 100}

// Summary is the per-habit streak state shown next to a habit.
type Summary struct {
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	AtRisk         bool       `json:"at_risk"`
	LastCompletion *time.Time `json:"last_completion,omitempty"`
}

// Summarize computes current and longest streak plus the at-risk flag, using
// the latest completion instant for the at-risk check.
func (c Calendar) Summarize(completions []time.Time, r Rule, reference time.Time) Summary {
	s := Summary{
		CurrentStreak: c.CurrentStreak(completions, r, reference),
		LongestStreak: c.LongestStreak(completions, r),
	}
	if last, ok := Latest(completions); ok {
		s.LastCompletion = &last
	}
	s.AtRisk = c.IsAtRisk(s.LastCompletion, r, reference)
	return s
}

// Latest returns the most recent instant.
func Latest(instants []time.Time) (time.Time, bool) {
	if len(instants) == 0 {
		return time.Time{}, false
	}
	latest := instants[0]
	for _, t := range instants[1:] {
		if t.After(latest) {
			latest = t
		}
	}
	return latest, true
}

// RatePercent converts a rate in [0, 1] to a rounded percentage.
func RatePercent(rate float64) int {
	return int(math.Round(rate * 100))
}

// WeekDots reports, oldest first, whether each of the seven days ending at the
// reference day has a completion.
func (c Calendar) WeekDots(completions []time.Time, reference time.Time) [7]bool {
	var dots [7]bool
	set := NewDaySet(completions, c.loc())
	today := c.Day(reference)
	for i := range dots {
		dots[i] = set.Has(today.AddDays(i - 6))
	}
	return dots
}

// MilestoneTier returns the tier reached when streak is exactly one of MilestoneTiers.
func MilestoneTier(streak int) (int, bool) {
	for _, tier := range MilestoneTiers {
		if streak == tier {
			return tier, true
		}
	}
	return 0, false
}

// HeatmapDay is one cell of the activity heatmap.
type HeatmapDay struct {
	Date   string `json:"date"`
	Count  int    `json:"count"`
	Level  int    `json:"level"`
	Future bool   `json:"future,omitempty"`
}

const maxHeatmapLevel = 4

// HeatmapLevel buckets a per-day habit count into levels 0..4.
func HeatmapLevel(count int) int {
	if count <= 0 {
		return 0
	}
	return min(count, maxHeatmapLevel)
}

// Heatmap returns one cell per day for the given number of Sunday-anchored
// weeks, the last of which contains the reference day. Count is the number of
// distinct habits completed that day. Days after the reference day are marked
// Future and left empty.
func (c Calendar) Heatmap(completionsByHabit map[string][]time.Time, reference time.Time, weeks int) []HeatmapDay {
	if weeks <= 0 {
		return nil
	}
	today := c.Day(reference)
	start := WeekStart(today).AddDays(-(weeks - 1) * 7)

	counts := make(map[Day]int)
	for _, completions := range completionsByHabit {
		for d := range NewDaySet(completions, c.loc()) {
			counts[d]++
		}
	}

	cells := make([]HeatmapDay, 0, weeks*7)
	for i := 0; i < weeks*7; i++ {
		d := start.AddDays(i)
		cell := HeatmapDay{Date: d.Key()}
		if d.After(today) {
			cell.Future = true
		} else {
			cell.Count = counts[d]
			cell.Level = HeatmapLevel(cell.Count)
		}
		cells = append(cells, cell)
	}
	return cells
}
