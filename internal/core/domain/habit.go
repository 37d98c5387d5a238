package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

var (
	ErrHabitTitleEmpty      = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong    = errors.New("habit title is too long (max 100 chars)")
	ErrHabitDescTooLong     = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID   = errors.New("invalid user id")
	ErrInvalidColor         = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidWeekdays      = errors.New("invalid weekdays (must be 0-6, at least one for days_of_week)")
	ErrInvalidTarget        = errors.New("target cannot be negative")
	ErrInvalidTimesPerWeek  = errors.New("times per week must be between 1 and 7")
	ErrInvalidFrequencyType = errors.New("invalid frequency type (must be daily, days_of_week or times_per_week)")
	ErrInvalidTimezone      = errors.New("invalid timezone (must be an IANA name)")
	ErrHabitArchived        = errors.New("cannot update an archived habit")
	ErrInvalidHabitType     = errors.New("invalid habit type (must be boolean, numeric, or timer)")
	ErrInvalidReminder      = errors.New("invalid reminder format (must be HH:MM 24h)")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var reminderRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	HabitTypeBoolean      = "boolean"
	HabitTypeNumeric      = "numeric"
	HabitTypeTimer        = "timer"
	HabitFreqDaily        = string(streak.KindDaily)
	HabitFreqDaysOfWeek   = string(streak.KindDaysOfWeek)
	HabitFreqTimesPerWeek = string(streak.KindTimesPerWeek)
	DefaultIcon           = "default_icon"
	DefaultTimezone       = "UTC"
	MaxTitleLen           = 100
	MaxDescLen            = 500
	MaxTimesPerWeek       = 7
)

type Habit struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Color         string     `json:"color"`
	Icon          string     `json:"icon"`
	SortOrder     int        `json:"sort_order"`
	Type          string     `json:"type"`
	ReminderTime  *string    `json:"reminder_time,omitempty"`
	FrequencyType string     `json:"frequency_type"`
	Weekdays      []int      `json:"weekdays,omitempty"`
	TimesPerWeek  int        `json:"times_per_week,omitempty"`
	TargetValue   int        `json:"target_value"`
	Unit          string     `json:"unit"`
	Timezone      string     `json:"timezone"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Version       int        `json:"version"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// HabitParams carries the user-editable attributes of a habit.
type HabitParams struct {
	Title         string
	Description   string
	Color         string
	Icon          string
	Type          string
	ReminderTime  string
	Unit          string
	TargetValue   int
	FrequencyType string
	Weekdays      []int
	TimesPerWeek  int
	Timezone      string
}

// Params returns the current attributes, the starting point for partial updates.
func (h *Habit) Params() HabitParams {
	reminder := ""
	if h.ReminderTime != nil {
		reminder = *h.ReminderTime
	}
	return HabitParams{
		Title:         h.Title,
		Description:   h.Description,
		Color:         h.Color,
		Icon:          h.Icon,
		Type:          h.Type,
		ReminderTime:  reminder,
		Unit:          h.Unit,
		TargetValue:   h.TargetValue,
		FrequencyType: h.FrequencyType,
		Weekdays:      h.Weekdays,
		TimesPerWeek:  h.TimesPerWeek,
		Timezone:      h.Timezone,
	}
}

func normalizeWeekdays(days []int) []int {
	if len(days) == 0 {
		return nil
	}

	uniqueMap := make(map[int]bool)
	var uniqueDays []int
	for _, d := range days {
		if !uniqueMap[d] {
			uniqueMap[d] = true
			uniqueDays = append(uniqueDays, d)
		}
	}

	sort.Ints(uniqueDays)
	return uniqueDays
}

func resolveFrequency(p HabitParams) (string, error) {
	if p.FrequencyType == "" {
		switch {
		case len(p.Weekdays) > 0:
			return HabitFreqDaysOfWeek, nil
		case p.TimesPerWeek > 0:
			return HabitFreqTimesPerWeek, nil
		default:
			return HabitFreqDaily, nil
		}
	}

	kind, err := streak.ParseKind(p.FrequencyType)
	if err != nil {
		return "", ErrInvalidFrequencyType
	}
	return string(kind), nil
}

func validateAndNormalize(p HabitParams) (HabitParams, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return p, ErrHabitTitleEmpty
	}
	if len(p.Title) > MaxTitleLen {
		return p, ErrHabitTitleTooLong
	}

	p.Description = strings.TrimSpace(p.Description)
	if len(p.Description) > MaxDescLen {
		return p, ErrHabitDescTooLong
	}

	if p.Type == "" {
		p.Type = HabitTypeBoolean
	}
	switch p.Type {
	case HabitTypeBoolean, HabitTypeNumeric, HabitTypeTimer:
	default:
		return p, ErrInvalidHabitType
	}

	if p.Type == HabitTypeBoolean {
		p.TargetValue = 1
	} else if p.TargetValue < 0 {
		return p, ErrInvalidTarget
	}

	if p.ReminderTime != "" && !reminderRegex.MatchString(p.ReminderTime) {
		return p, ErrInvalidReminder
	}

	for _, day := range p.Weekdays {
		if day < 0 || day > 6 {
			return p, ErrInvalidWeekdays
		}
	}

	if p.Color != "" && !colorRegex.MatchString(p.Color) {
		return p, ErrInvalidColor
	}

	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return p, ErrInvalidTimezone
	}

	freq, err := resolveFrequency(p)
	if err != nil {
		return p, err
	}
	p.FrequencyType = freq

	switch freq {
	case HabitFreqDaysOfWeek:
		p.Weekdays = normalizeWeekdays(p.Weekdays)
		if len(p.Weekdays) == 0 {
			return p, ErrInvalidWeekdays
		}
		p.TimesPerWeek = 0
	case HabitFreqTimesPerWeek:
		if p.TimesPerWeek < 1 || p.TimesPerWeek > MaxTimesPerWeek {
			return p, ErrInvalidTimesPerWeek
		}
		p.Weekdays = nil
	default:
		p.Weekdays = nil
		p.TimesPerWeek = 0
	}

	if p.Icon == "" {
		p.Icon = DefaultIcon
	}

	return p, nil
}

// NewHabit returns a daily boolean habit. An empty id gets a generated one,
// a non-empty id is kept so offline clients can create habits with their own ids.
func NewHabit(id, title, userID string) (*Habit, error) {
	if userID == "" {
		return nil, ErrHabitInvalidUserID
	}

	p, err := validateAndNormalize(HabitParams{Title: title})
	if err != nil {
		return nil, err
	}

	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()

	h := &Habit{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		StartDate: now,
		Version:   1,
	}
	h.apply(p)
	return h, nil
}

func (h *Habit) apply(p HabitParams) {
	var remPtr *string
	if p.ReminderTime != "" {
		reminder := p.ReminderTime
		remPtr = &reminder
	}

	h.Title = p.Title
	h.Description = p.Description
	h.Color = p.Color
	h.Icon = p.Icon
	h.Type = p.Type
	h.ReminderTime = remPtr
	h.Unit = p.Unit
	h.TargetValue = p.TargetValue
	h.FrequencyType = p.FrequencyType
	h.Weekdays = p.Weekdays
	h.TimesPerWeek = p.TimesPerWeek
	h.Timezone = p.Timezone
}

func (h *Habit) Update(p HabitParams) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	clean, err := validateAndNormalize(p)
	if err != nil {
		return err
	}

	h.apply(clean)
	h.UpdatedAt = time.Now().UTC()

	return nil
}

// Rule returns the scheduling rule used for streaks and completion rates.
func (h *Habit) Rule() streak.Rule {
	switch h.FrequencyType {
	case HabitFreqDaysOfWeek:
		days := make([]time.Weekday, 0, len(h.Weekdays))
		for _, d := range h.Weekdays {
			days = append(days, time.Weekday(d))
		}
		return streak.DaysOfWeek(days...)
	case HabitFreqTimesPerWeek:
		return streak.TimesPerWeek(h.TimesPerWeek)
	default:
		return streak.Daily()
	}
}

// Location resolves the habit's timezone, falling back to UTC.
func (h *Habit) Location() *time.Location {
	if h.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Calendar returns the streak calendar bound to the habit's timezone.
func (h *Habit) Calendar() streak.Calendar {
	return streak.NewCalendar(h.Location())
}

func (h *Habit) UpdateStreak(current, longest int) {
	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
}

func (h *Habit) ChangePosition(newOrder int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	h.SortOrder = newOrder
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}
