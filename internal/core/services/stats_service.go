package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

const (
	DefaultHeatmapWeeks = 12
	MaxHeatmapWeeks     = 53
)

type StatsService struct {
	habitRepo domain.HabitRepository
	entryRepo domain.HabitEntryRepository
	now       func() time.Time
}

func NewStatsService(habitRepo domain.HabitRepository, entryRepo domain.HabitEntryRepository) *StatsService {
	return &StatsService{
		habitRepo: habitRepo,
		entryRepo: entryRepo,
		now:       time.Now,
	}
}

// WithClock replaces time.Now as the reference instant.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Now returns the service's reference instant.
func (s *StatsService) Now() time.Time {
	return s.now()
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// dayRange returns the instants bounding the local days first..last, inclusive.
func dayRange(first, last streak.Day, loc *time.Location) (time.Time, time.Time) {
	return first.Start(loc), last.AddDays(1).Start(loc).Add(-time.Nanosecond)
}

// GetWeeklyStats reports per-day progress for every habit over the inclusive
// range of local days, plus a completion rate over the scheduled days of the range.
func (s *StatsService) GetWeeklyStats(ctx context.Context, input domain.StatsInput) (*domain.WeeklyStats, error) {
	loc := locationOrUTC(input.Location)
	cal := streak.NewCalendar(loc)

	startDay := cal.Day(input.StartDate)
	endDay := cal.Day(input.EndDate)
	if endDay.Before(startDay) {
		startDay, endDay = endDay, startDay
	}
	windowDays := startDay.DaysUntil(endDay) + 1

	habits, err := s.habitRepo.ListByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	from, to := dayRange(startDay, endDay, loc)
	entries, err := s.entryRepo.ListByUserIDAndDateRange(ctx, input.UserID, from, to)
	if err != nil {
		return nil, err
	}

	entriesMap := make(map[string]map[streak.Day]int)
	for _, e := range entries {
		if _, exists := entriesMap[e.HabitID]; !exists {
			entriesMap[e.HabitID] = make(map[streak.Day]int)
		}
		entriesMap[e.HabitID][cal.Day(e.CompletionDate)] += e.Value
	}

	stats := &domain.WeeklyStats{
		StartDate:   startDay.Key(),
		EndDate:     endDay.Key(),
		Timezone:    loc.String(),
		TotalHabits: len(habits),
		HabitStats:  make([]domain.HabitStat, 0, len(habits)),
	}

	totalScheduled := 0
	totalCompleted := 0

	for _, h := range habits {
		rule := h.Rule()
		target := max(h.TargetValue, 1)

		hStat := domain.HabitStat{
			HabitID:       h.ID,
			HabitTitle:    h.Title,
			Color:         h.Color,
			Icon:          h.Icon,
			FrequencyType: string(rule.Kind),
			TargetValue:   h.TargetValue,
			Unit:          h.Unit,
			DailyProgress: make([]int, 0, windowDays),
		}

		var completions []time.Time
		for day := startDay; !day.After(endDay); day = day.AddDays(1) {
			val := entriesMap[h.ID][day]

			hStat.TotalValue += val
			hStat.DailyProgress = append(hStat.DailyProgress, val)

			if val >= target {
				hStat.DaysCompleted++
				completions = append(completions, day.Start(loc))
				if streak.IsScheduled(day, rule) {
					totalCompleted++
				}
			}
		}

		hStat.DaysScheduled = len(streak.ScheduledDaysInWindow(rule, startDay, endDay))
		totalScheduled += hStat.DaysScheduled

		rate := cal.CompletionRate(completions, rule, windowDays, endDay.Start(loc))
		hStat.CompletionRate = rate * 100

		stats.HabitStats = append(stats.HabitStats, hStat)
	}

	if totalScheduled > 0 {
		stats.OverallRate = float64(totalCompleted) / float64(totalScheduled) * 100
	}

	return stats, nil
}

func (s *StatsService) ownedHabit(ctx context.Context, habitID, userID string) (*domain.Habit, error) {
	habit, err := s.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

// GetHabitStreak computes the streak card of a habit from its full history,
// in the habit's own timezone.
func (s *StatsService) GetHabitStreak(ctx context.Context, habitID, userID string) (*domain.StreakSummary, error) {
	habit, err := s.ownedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entryRepo.ListAllByHabitID(ctx, habitID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cal := habit.Calendar()
	rule := habit.Rule()
	completions := domain.CompletionInstants(habit, entries)
	summary := cal.Summarize(completions, rule, now)

	out := &domain.StreakSummary{
		HabitID:        habit.ID,
		FrequencyType:  string(rule.Kind),
		Timezone:       habit.Location().String(),
		CurrentStreak:  summary.CurrentStreak,
		LongestStreak:  summary.LongestStreak,
		AtRisk:         summary.AtRisk,
		LastCompletion: summary.LastCompletion,
		Rate7:          streak.RatePercent(cal.CompletionRate(completions, rule, streak.Window7, now)),
		Rate30:         streak.RatePercent(cal.CompletionRate(completions, rule, streak.Window30, now)),
		Rate90:         streak.RatePercent(cal.CompletionRate(completions, rule, streak.Window90, now)),
		WeekDots:       cal.WeekDots(completions, now),
	}
	if tier, ok := streak.MilestoneTier(summary.CurrentStreak); ok {
		out.Milestone = tier
	}

	return out, nil
}

// userDayCompletions groups the user's entries between from and to into
// completion instants per habit, one per local day that reached the target.
func (s *StatsService) userDayCompletions(ctx context.Context, userID string, habits []*domain.Habit, from, to time.Time) (map[string][]time.Time, error) {
	entries, err := s.entryRepo.ListByUserIDAndDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	byHabit := make(map[string][]*domain.HabitEntry)
	for _, e := range entries {
		byHabit[e.HabitID] = append(byHabit[e.HabitID], e)
	}

	out := make(map[string][]time.Time, len(habits))
	for _, h := range habits {
		out[h.ID] = domain.CompletionInstants(h, byHabit[h.ID])
	}
	return out, nil
}

func activeHabits(habits []*domain.Habit) []*domain.Habit {
	out := make([]*domain.Habit, 0, len(habits))
	for _, h := range habits {
		if h.ArchivedAt == nil {
			out = append(out, h)
		}
	}
	return out
}

// GetTodayProgress counts the active habits completed on the current local day.
func (s *StatsService) GetTodayProgress(ctx context.Context, userID string, loc *time.Location) (*domain.TodayProgress, error) {
	loc = locationOrUTC(loc)
	cal := streak.NewCalendar(loc)
	today := cal.Day(s.now())

	habits, err := s.habitRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	habits = activeHabits(habits)

	// Habits may live in other timezones, so fetch a day of slack on each side.
	from, to := dayRange(today.AddDays(-1), today.AddDays(1), loc)
	completions, err := s.userDayCompletions(ctx, userID, habits, from, to)
	if err != nil {
		return nil, err
	}

	progress := &domain.TodayProgress{
		Date:  today.Key(),
		Total: len(habits),
	}
	for _, h := range habits {
		hcal := h.Calendar()
		hToday := hcal.Day(s.now())
		for _, c := range completions[h.ID] {
			if hcal.Day(c) == hToday {
				progress.Completed++
				break
			}
		}
	}
	if progress.Total > 0 {
		progress.Percent = streak.RatePercent(float64(progress.Completed) / float64(progress.Total))
	}

	return progress, nil
}

// GetHeatmap counts completed habits per local day over the last weeks.
func (s *StatsService) GetHeatmap(ctx context.Context, userID string, loc *time.Location, weeks int) (*domain.Heatmap, error) {
	loc = locationOrUTC(loc)
	if weeks <= 0 {
		weeks = DefaultHeatmapWeeks
	}
	weeks = min(weeks, MaxHeatmapWeeks)

	cal := streak.NewCalendar(loc)
	now := s.now()
	today := cal.Day(now)
	first := streak.WeekStart(today).AddDays(-7 * (weeks - 1))

	habits, err := s.habitRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	from, to := dayRange(first.AddDays(-1), today.AddDays(1), loc)
	completions, err := s.userDayCompletions(ctx, userID, habits, from, to)
	if err != nil {
		return nil, err
	}

	return &domain.Heatmap{
		Weeks:    weeks,
		Timezone: loc.String(),
		Days:     cal.Heatmap(completions, now, weeks),
	}, nil
}
