package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

const defaultQueueSize = 100

type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Habit, error)
	UpdateStreaks(ctx context.Context, id string, current, longest int) error
}

type EntryRepository interface {
	ListAllByHabitID(ctx context.Context, habitID string) ([]*domain.HabitEntry, error)
}

type StreakJob struct {
	HabitID string
}

// StreakWorker recomputes the streak snapshot stored on a habit after its
// entries change. Jobs are dropped when the queue is full; the next mutation
// of the same habit recomputes from the full history anyway.
type StreakWorker struct {
	habitRepo HabitRepository
	entryRepo EntryRepository
	jobs      chan StreakJob
	now       func() time.Time
}

type Option func(*StreakWorker)

// WithClock replaces time.Now as the reference instant.
func WithClock(now func() time.Time) Option {
	return func(w *StreakWorker) {
		w.now = now
	}
}

func WithQueueSize(size int) Option {
	return func(w *StreakWorker) {
		if size > 0 {
			w.jobs = make(chan StreakJob, size)
		}
	}
}

func NewStreakWorker(hRepo HabitRepository, eRepo EntryRepository, opts ...Option) *StreakWorker {
	w := &StreakWorker{
		habitRepo: hRepo,
		entryRepo: eRepo,
		jobs:      make(chan StreakJob, defaultQueueSize),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *StreakWorker) Start(ctx context.Context) {
	go func() {
		log.Println("[WORKER] Streak worker started")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("[WORKER] Streak worker shutting down")
				return
			}
		}
	}()
}

func (w *StreakWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- StreakJob{HabitID: habitID}:
	default:
		log.Printf("[WORKER] Queue full, dropping job for habit %s", habitID)
	}
}

// Pending returns the number of queued jobs.
func (w *StreakWorker) Pending() int {
	return len(w.jobs)
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	result, err := w.Recompute(ctx, job.HabitID)
	if err != nil {
		log.Printf("[WORKER] %v", err)
		return
	}
	if !result.Changed {
		return
	}

	log.Printf("[WORKER] Streak updated for %s: current=%d longest=%d", job.HabitID, result.Current, result.Longest)
	if tier, ok := streak.MilestoneTier(result.Current); ok && result.Current > result.Previous {
		log.Printf("[WORKER] Habit %s reached the %d-day milestone", job.HabitID, tier)
	}
}

type RecomputeResult struct {
	Current  int
	Longest  int
	Previous int
	Changed  bool
}

// Recompute computes the streaks of a habit from its whole history in the
// habit's timezone and persists them when they differ from the stored snapshot.
func (w *StreakWorker) Recompute(ctx context.Context, habitID string) (RecomputeResult, error) {
	habit, err := w.habitRepo.GetByID(ctx, habitID)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("fetching habit %s: %w", habitID, err)
	}

	entries, err := w.entryRepo.ListAllByHabitID(ctx, habitID)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("fetching entries for %s: %w", habitID, err)
	}

	current, longest := calculateStreaks(habit, entries, w.now())
	res := RecomputeResult{
		Current:  current,
		Longest:  longest,
		Previous: habit.CurrentStreak,
		Changed:  habit.CurrentStreak != current || habit.LongestStreak != longest,
	}
	if !res.Changed {
		return res, nil
	}

	if err := w.habitRepo.UpdateStreaks(ctx, habitID, current, longest); err != nil {
		return res, fmt.Errorf("updating streak for %s: %w", habitID, err)
	}
	return res, nil
}

func calculateStreaks(habit *domain.Habit, entries []*domain.HabitEntry, now time.Time) (int, int) {
	completions := domain.CompletionInstants(habit, entries)
	if len(completions) == 0 {
		return 0, 0
	}

	cal := habit.Calendar()
	rule := habit.Rule()

	return cal.CurrentStreak(completions, rule, now), cal.LongestStreak(completions, rule)
}
