package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
)

var _ domain.HabitEntryRepository = (*InMemoryEntryRepository)(nil)

type InMemoryEntryRepository struct {
	store map[string]*domain.HabitEntry

	mu sync.RWMutex
}

func NewInMemoryEntryRepository() *InMemoryEntryRepository {
	return &InMemoryEntryRepository{
		store: make(map[string]*domain.HabitEntry),
	}
}

func cloneEntry(e *domain.HabitEntry) *domain.HabitEntry {
	c := *e
	return &c
}

func (r *InMemoryEntryRepository) Create(ctx context.Context, entry *domain.HabitEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, exists := r.store[entry.ID]; exists {
		return domain.ErrEntryConflict
	}

	r.store[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *InMemoryEntryRepository) Update(ctx context.Context, entry *domain.HabitEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.store[entry.ID]
	if !ok || stored.DeletedAt != nil {
		return domain.ErrEntryNotFound
	}
	if stored.Version != entry.Version-1 {
		return domain.ErrEntryConflict
	}

	r.store[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *InMemoryEntryRepository) Delete(ctx context.Context, id string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.store[id]
	if !ok || e.DeletedAt != nil || e.UserID != userID {
		return domain.ErrEntryNotFound
	}

	now := time.Now().UTC()
	e.DeletedAt = &now
	e.UpdatedAt = now
	e.Version++
	return nil
}

func (r *InMemoryEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.store[id]
	if !ok || e.DeletedAt != nil {
		return nil, domain.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

// filter returns the active entries matching keep, sorted by completion date.
func (r *InMemoryEntryRepository) filter(keep func(e *domain.HabitEntry) bool, desc bool) []*domain.HabitEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.HabitEntry{}
	for _, e := range r.store {
		if e.DeletedAt == nil && keep(e) {
			out = append(out, cloneEntry(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].CompletionDate.After(out[j].CompletionDate)
		}
		return out[i].CompletionDate.Before(out[j].CompletionDate)
	})
	return out
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (r *InMemoryEntryRepository) ListByHabitID(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.filter(func(e *domain.HabitEntry) bool {
		return e.HabitID == habitID && within(e.CompletionDate, from, to)
	}, true), nil
}

func (r *InMemoryEntryRepository) ListAllByHabitID(ctx context.Context, habitID string) ([]*domain.HabitEntry, error) {
	return r.filter(func(e *domain.HabitEntry) bool {
		return e.HabitID == habitID
	}, false), nil
}

func (r *InMemoryEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.filter(func(e *domain.HabitEntry) bool {
		return e.UserID == userID && within(e.CompletionDate, from, to)
	}, false), nil
}

func (r *InMemoryEntryRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.HabitEntry{}
	for _, e := range r.store {
		if e.UserID == userID && e.UpdatedAt.After(since) {
			out = append(out, cloneEntry(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out, nil
}
