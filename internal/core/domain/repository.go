package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrHabitConflict = errors.New("habit version conflict")
	ErrUnauthorized  = errors.New("resource does not belong to user")
)

type HabitRepository interface {
	// Create persists a new habit definition in the storage.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves an active (non-deleted) habit by its unique identifier.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// GetByIDIncludingDeleted also returns soft-deleted habits, so offline
	// clients can revive a habit they deleted.
	GetByIDIncludingDeleted(ctx context.Context, id string) (*Habit, error)

	// ListByUserID retrieves all active habits associated with a specific user.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// Update modifies the state of an existing habit.
	// Implementations must check the version and bump it on success.
	Update(ctx context.Context, habit *Habit) error

	// Delete soft-deletes a habit.
	Delete(ctx context.Context, id string) error

	// GetChanges [SYNC] Returns only the deltas (changes) occurring after a specific date.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*Habit, error)

	// UpdateStreaks stores the streak snapshot computed by the streak worker.
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}
