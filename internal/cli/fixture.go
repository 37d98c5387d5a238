package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/streak"
)

var ErrNoHabits = errors.New("fixture has no habits")

// Fixture is a YAML description of habits and their completion instants,
// evaluated offline by the streakctl commands.
//
//	timezone: Europe/Rome
//	now: 2025-01-10T12:00:00Z
//	habits:
//	  - id: run
//	    rule: {type: days_of_week, days: [1, 3, 5]}
//	    completions: [2025-01-08T07:00:00Z]
type Fixture struct {
	Timezone string         `yaml:"timezone"`
	Now      *time.Time     `yaml:"now"`
	Habits   []FixtureHabit `yaml:"habits"`

	location *time.Location
}

type FixtureHabit struct {
	ID          string      `yaml:"id"`
	Rule        streak.Rule `yaml:"rule"`
	Completions []time.Time `yaml:"completions"`
}

// LoadFixture reads and validates a fixture file. Rule kinds accept the
// same aliases as the API.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	if len(f.Habits) == 0 {
		return nil, ErrNoHabits
	}

	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", f.Timezone, err)
	}
	f.location = loc

	for i := range f.Habits {
		h := &f.Habits[i]
		if h.ID == "" {
			h.ID = fmt.Sprintf("habit-%d", i+1)
		}
		kind, err := streak.ParseKind(string(h.Rule.Kind))
		if err != nil {
			return nil, fmt.Errorf("habit %s: %w", h.ID, err)
		}
		h.Rule.Kind = kind
	}

	return &f, nil
}

func (f *Fixture) Calendar() streak.Calendar {
	return streak.NewCalendar(f.location)
}

// Reference returns the fixture's "now", the override when set, or the
// given fallback.
func (f *Fixture) Reference(override string, fallback time.Time) (time.Time, error) {
	if override != "" {
		t, err := time.Parse(time.RFC3339, override)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --now %q: %w", override, err)
		}
		return t, nil
	}
	if f.Now != nil {
		return *f.Now, nil
	}
	return fallback, nil
}

func (f *Fixture) completionsByHabit() map[string][]time.Time {
	out := make(map[string][]time.Time, len(f.Habits))
	for _, h := range f.Habits {
		out[h.ID] = h.Completions
	}
	return out
}
