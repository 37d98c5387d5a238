package domain

import (
	"time"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

type WeeklyStats struct {
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	Timezone    string      `json:"timezone"`
	TotalHabits int         `json:"total_habits"`
	OverallRate float64     `json:"overall_completion_rate"`
	HabitStats  []HabitStat `json:"habits"`
}

type HabitStat struct {
	HabitID        string  `json:"habit_id"`
	HabitTitle     string  `json:"habit_title"`
	Color          string  `json:"color"`
	Icon           string  `json:"icon"`
	FrequencyType  string  `json:"frequency_type"`
	TargetValue    int     `json:"target_value"`
	Unit           string  `json:"unit"`
	TotalValue     int     `json:"total_value"`
	CompletionRate float64 `json:"completion_rate"`
	DaysCompleted  int     `json:"days_completed"`
	DaysScheduled  int     `json:"days_scheduled"`
	DailyProgress  []int   `json:"daily_progress"`
}

type StatsInput struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time
	Location  *time.Location
}

// StreakSummary is the per-habit card shown by clients.
type StreakSummary struct {
	HabitID        string     `json:"habit_id"`
	FrequencyType  string     `json:"frequency_type"`
	Timezone       string     `json:"timezone"`
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	AtRisk         bool       `json:"at_risk"`
	LastCompletion *time.Time `json:"last_completion,omitempty"`
	Rate7          int        `json:"rate_7d"`
	Rate30         int        `json:"rate_30d"`
	Rate90         int        `json:"rate_90d"`
	WeekDots       [7]bool    `json:"week_dots"`
	Milestone      int        `json:"milestone,omitempty"`
}

type TodayProgress struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Percent   int    `json:"percent"`
}

type HeatmapDay = streak.HeatmapDay

type Heatmap struct {
	Weeks    int          `json:"weeks"`
	Timezone string       `json:"timezone"`
	Days     []HeatmapDay `json:"days"`
}
