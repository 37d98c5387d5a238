package streak

import (
	"fmt"
	"time"
)

const (
	dayKeyLayout  = "2006-01-02"
	secondsPerDay = 24 * 60 * 60
)

// Day is a civil calendar day with no time-of-day or location attached.
// Days are comparable and can be used as map keys.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay normalizes its arguments the way time.Date does, so NewDay(2024, 2, 30)
// is March 1st.
func NewDay(year int, month time.Month, day int) Day {
	return dayFromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the calendar day t falls on in loc. A nil loc keeps t's own location.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a "YYYY-MM-DD" key.
func ParseDay(key string) (Day, error) {
	t, err := time.Parse(dayKeyLayout, key)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", key, err)
	}
	return dayFromTime(t), nil
}

func dayFromTime(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// midnight in UTC, where every day is exactly 24h long.
func (d Day) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Key returns the "YYYY-MM-DD" form. Lexicographic order is chronological order.
func (d Day) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Day) String() string {
	return d.Key()
}

func (d Day) AddDays(n int) Day {
	return dayFromTime(d.utc().AddDate(0, 0, n))
}

func (d Day) Weekday() time.Weekday {
	return d.utc().Weekday()
}

func (d Day) Before(o Day) bool {
	return d.utc().Before(o.utc())
}

func (d Day) After(o Day) bool {
	return d.utc().After(o.utc())
}

// DaysUntil returns the signed number of days from d to o.
func (d Day) DaysUntil(o Day) int {
	return int((o.utc().Unix() - d.utc().Unix()) / secondsPerDay)
}

// Start returns local midnight of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// WeekStart returns the Sunday on or before d.
func WeekStart(d Day) Day {
	return d.AddDays(-int(d.Weekday()))
}

// DaySet is a set of completed calendar days.
type DaySet map[Day]struct{}

// NewDaySet buckets instants into the days they fall on in loc.
func NewDaySet(instants []time.Time, loc *time.Location) DaySet {
	set := make(DaySet, len(instants))
	for _, t := range instants {
		set[DayOf(t, loc)] = struct{}{}
	}
	return set
}

func (s DaySet) Has(d Day) bool {
	_, ok := s[d]
	return ok
}

// Bounds returns the earliest and latest day in the set. ok is false for an empty set.
func (s DaySet) Bounds() (first, last Day, ok bool) {
	for d := range s {
		if !ok {
			first, last, ok = d, d, true
			continue
		}
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last, ok
}

// CountCompletionsInWeek counts the completed days among the seven days starting at weekStart.
func CountCompletionsInWeek(set DaySet, weekStart Day) int {
	count := 0
	for i := 0; i < 7; i++ {
		if set.Has(weekStart.AddDays(i)) {
			count++
		}
	}
	return count
}
