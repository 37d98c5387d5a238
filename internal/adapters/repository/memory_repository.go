package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var _ domain.HabitRepository = (*InMemoryHabitRepository)(nil)

// InMemoryHabitRepository mirrors the Postgres semantics (soft delete,
// version check on update) for STORAGE=memory and tests. Habits are copied
// in and out so callers never share state with the store.
type InMemoryHabitRepository struct {
	store map[string]*domain.Habit

	mu sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{
		store: make(map[string]*domain.Habit),
	}
}

func cloneHabit(h *domain.Habit) *domain.Habit {
	c := *h
	if h.Weekdays != nil {
		c.Weekdays = append([]int(nil), h.Weekdays...)
	}
	return &c
}

func (r *InMemoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[habit.ID]; exists {
		return domain.ErrHabitConflict
	}

	habit.Version = 1
	r.store[habit.ID] = cloneHabit(habit)
	return nil
}

func (r *InMemoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok || habit.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	return cloneHabit(habit), nil
}

func (r *InMemoryHabitRepository) GetByIDIncludingDeleted(ctx context.Context, id string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	return cloneHabit(habit), nil
}

func (r *InMemoryHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var habits []*domain.Habit
	for _, h := range r.store {
		if h.UserID == userID && h.DeletedAt == nil {
			habits = append(habits, cloneHabit(h))
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		if habits[i].SortOrder != habits[j].SortOrder {
			return habits[i].SortOrder < habits[j].SortOrder
		}
		return habits[i].CreatedAt.After(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[habit.ID]
	if !ok {
		return domain.ErrHabitNotFound
	}
	if stored.Version != habit.Version {
		return domain.ErrHabitConflict
	}

	habit.Version++
	habit.UpdatedAt = time.Now().UTC()
	habit.CurrentStreak = stored.CurrentStreak
	habit.LongestStreak = stored.LongestStreak
	r.store[habit.ID] = cloneHabit(habit)
	return nil
}

func (r *InMemoryHabitRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.store[id]
	if !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	now := time.Now().UTC()
	h.DeletedAt = &now
	h.UpdatedAt = now
	h.Version++
	return nil
}

func (r *InMemoryHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var changes []*domain.Habit
	for _, h := range r.store {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			changes = append(changes, cloneHabit(h))
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].UpdatedAt.Before(changes[j].UpdatedAt)
	})
	return changes, nil
}

func (r *InMemoryHabitRepository) UpdateStreaks(ctx context.Context, id string, current, longest int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.store[id]
	if !ok || h.DeletedAt != nil {
		return domain.ErrHabitNotFound
	}

	h.CurrentStreak = current
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
	return nil
}
