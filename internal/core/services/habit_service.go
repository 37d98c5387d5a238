package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

// StreakQueue schedules a recompute of a habit's stored streak figures.
type StreakQueue interface {
	Enqueue(habitID string)
}

type HabitService struct {
	repo            domain.HabitRepository
	defaultTimezone string
	streaks         StreakQueue
}

// NewHabitService builds the service. defaultTimezone is applied to habits
// created without one; empty means UTC.
func NewHabitService(repo domain.HabitRepository, defaultTimezone string) *HabitService {
	return &HabitService{
		repo:            repo,
		defaultTimezone: defaultTimezone,
	}
}

// WithStreakQueue makes schedule changes queue a streak recompute.
func (s *HabitService) WithStreakQueue(q StreakQueue) *HabitService {
	s.streaks = q
	return s
}

func (s *HabitService) recompute(habitID string) {
	if s.streaks != nil {
		s.streaks.Enqueue(habitID)
	}
}

// scheduleChanged reports whether the fields the streak figures depend on differ.
func scheduleChanged(a, b domain.HabitParams) bool {
	return a.FrequencyType != b.FrequencyType ||
		a.TimesPerWeek != b.TimesPerWeek ||
		a.Timezone != b.Timezone ||
		a.TargetValue != b.TargetValue ||
		!slices.Equal(a.Weekdays, b.Weekdays)
}

type CreateHabitInput struct {
	ID            string
	UserID        string
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

// UpdateHabitInput is a partial update: nil fields keep the stored value.
type UpdateHabitInput struct {
	ID            string
	UserID        string
	Title         *string
	Description   *string
	Color         *string
	Icon          *string
	Type          *string
	ReminderTime  *string
	Unit          *string
	TargetValue   *int
	FrequencyType *string
	Weekdays      []int
	TimesPerWeek  *int
	Timezone      *string
	SortOrder     *int
	Archived      *bool
	Version       int
}

func (in CreateHabitInput) params() domain.HabitParams {
	return domain.HabitParams{
		Title:         in.Title,
		Description:   in.Description,
		Color:         in.Color,
		Icon:          in.Icon,
		Type:          in.Type,
		ReminderTime:  in.ReminderTime,
		Unit:          in.Unit,
		TargetValue:   in.TargetValue,
		FrequencyType: in.FrequencyType,
		Weekdays:      in.Weekdays,
		TimesPerWeek:  in.TimesPerWeek,
		Timezone:      in.Timezone,
	}
}

func (s *HabitService) withDefaults(p domain.HabitParams) domain.HabitParams {
	if p.Timezone == "" {
		p.Timezone = s.defaultTimezone
	}
	if p.TargetValue < 1 {
		p.TargetValue = 1
	}
	return p
}

// Create persists a new habit. Creating an id that already exists for the same
// user returns the stored habit (sync retries), and a soft-deleted one is revived
// with the new attributes.
func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	p := s.withDefaults(input.params())

	if input.ID != "" {
		existing, err := s.repo.GetByIDIncludingDeleted(ctx, input.ID)
		switch {
		case err == nil:
			if existing.UserID != input.UserID {
				return nil, domain.ErrUnauthorized
			}
			if existing.DeletedAt == nil {
				return existing, nil
			}
			return s.revive(ctx, existing, p)
		case !errors.Is(err, domain.ErrHabitNotFound):
			return nil, err
		}
	}

	habit, err := domain.NewHabit(input.ID, input.Title, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := habit.Update(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) revive(ctx context.Context, habit *domain.Habit, p domain.HabitParams) (*domain.Habit, error) {
	habit.DeletedAt = nil
	habit.Restore()

	if err := habit.Update(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}
	s.recompute(habit.ID)
	return habit, nil
}

func (s *HabitService) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *HabitService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Habit, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

// Update applies a partial update. An update for an unknown id carrying a
// title creates the habit, so clients that missed the create can catch up.
func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, input.ID)
	if errors.Is(err, domain.ErrHabitNotFound) && input.Title != nil {
		return s.Create(ctx, input.createInput())
	}
	if err != nil {
		return nil, err
	}

	if habit.UserID != input.UserID {
		return nil, domain.ErrHabitNotFound
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	before := habit.Params()
	before.Weekdays = slices.Clone(before.Weekdays)

	if input.Archived != nil && !*input.Archived {
		habit.Restore()
	}

	if err := habit.Update(input.merge(habit.Params())); err != nil {
		return nil, err
	}

	if input.SortOrder != nil {
		if err := habit.ChangePosition(*input.SortOrder); err != nil {
			return nil, err
		}
	}

	if input.Archived != nil && *input.Archived {
		habit.Archive()
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	if scheduleChanged(before, habit.Params()) {
		s.recompute(habit.ID)
	}

	return habit, nil
}

func (in UpdateHabitInput) merge(p domain.HabitParams) domain.HabitParams {
	setString(&p.Title, in.Title)
	setString(&p.Description, in.Description)
	setString(&p.Color, in.Color)
	setString(&p.Icon, in.Icon)
	setString(&p.Type, in.Type)
	setString(&p.ReminderTime, in.ReminderTime)
	setString(&p.Unit, in.Unit)
	setString(&p.Timezone, in.Timezone)
	setString(&p.FrequencyType, in.FrequencyType)

	if in.TargetValue != nil {
		p.TargetValue = *in.TargetValue
	}
	if in.Weekdays != nil {
		p.Weekdays = in.Weekdays
	}
	if in.TimesPerWeek != nil {
		p.TimesPerWeek = *in.TimesPerWeek
	}

	// A new schedule without an explicit type switches the frequency.
	if in.FrequencyType == nil {
		switch {
		case len(in.Weekdays) > 0:
			p.FrequencyType = domain.HabitFreqDaysOfWeek
		case in.TimesPerWeek != nil && *in.TimesPerWeek > 0:
			p.FrequencyType = domain.HabitFreqTimesPerWeek
		}
	}

	return p
}

func (in UpdateHabitInput) createInput() CreateHabitInput {
	out := CreateHabitInput{
		ID:       in.ID,
		UserID:   in.UserID,
		Weekdays: in.Weekdays,
	}
	setString(&out.Title, in.Title)
	setString(&out.Description, in.Description)
	setString(&out.Color, in.Color)
	setString(&out.Icon, in.Icon)
	setString(&out.Type, in.Type)
	setString(&out.ReminderTime, in.ReminderTime)
	setString(&out.Unit, in.Unit)
	setString(&out.Timezone, in.Timezone)
	setString(&out.FrequencyType, in.FrequencyType)
	if in.TargetValue != nil {
		out.TargetValue = *in.TargetValue
	}
	if in.TimesPerWeek != nil {
		out.TimesPerWeek = *in.TimesPerWeek
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if habit.UserID != userID {
		return domain.ErrHabitNotFound
	}

	return s.repo.Delete(ctx, id)
}
