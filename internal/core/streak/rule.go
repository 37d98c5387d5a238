package streak

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindDaily        Kind = "daily"
	KindDaysOfWeek   Kind = "days_of_week"
	KindTimesPerWeek Kind = "times_per_week"
)

// Rule describes when a habit is expected to be done.
//
// Only the payload matching Kind is meaningful: Days for KindDaysOfWeek,
// Count for KindTimesPerWeek.
type Rule struct {
	Kind  Kind           `json:"type" yaml:"type"`
	Days  []time.Weekday `json:"days,omitempty" yaml:"days,omitempty"`
	Count int            `json:"count,omitempty" yaml:"count,omitempty"`
}

func Daily() Rule {
	return Rule{Kind: KindDaily}
}

func DaysOfWeek(days ...time.Weekday) Rule {
	return Rule{Kind: KindDaysOfWeek, Days: days}
}

func TimesPerWeek(count int) Rule {
	return Rule{Kind: KindTimesPerWeek, Count: count}
}

// ParseKind accepts the canonical kinds plus the aliases used by older clients.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", string(KindDaily):
		return KindDaily, nil
	case string(KindDaysOfWeek), "daysOfWeek", "specific_days":
		return KindDaysOfWeek, nil
	case string(KindTimesPerWeek), "xPerWeek":
		return KindTimesPerWeek, nil
	default:
		return "", fmt.Errorf("unknown frequency type %q", s)
	}
}

// weekBucketed reports whether streaks are counted in weeks rather than days.
func (r Rule) weekBucketed() bool {
	return r.Kind == KindTimesPerWeek
}

func (r Rule) String() string {
	switch r.Kind {
	case KindDaysOfWeek:
		return fmt.Sprintf("%s%v", r.Kind, r.Days)
	case KindTimesPerWeek:
		return fmt.Sprintf("%s(%d)", r.Kind, r.Count)
	default:
		return string(r.Kind)
	}
}

// IsScheduled reports whether the habit is expected on d. Every day is
// schedulable for daily and times-per-week rules. Unknown kinds schedule nothing.
func IsScheduled(d Day, r Rule) bool {
	switch r.Kind {
	case KindDaily, KindTimesPerWeek:
		return true
	case KindDaysOfWeek:
		wd := d.Weekday()
		for _, day := range r.Days {
			if day == wd {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ScheduledDaysInWindow returns the scheduled days in [start, end] in ascending
// order. The result is empty when start is after end.
func ScheduledDaysInWindow(r Rule, start, end Day) []Day {
	if start.After(end) {
		return nil
	}
	days := make([]Day, 0, start.DaysUntil(end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if IsScheduled(d, r) {
			days = append(days, d)
		}
	}
	return days
}
