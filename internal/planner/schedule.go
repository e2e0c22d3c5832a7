package planner

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

const minutesPerDay = 24 * 60

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses HH:MM (24h). A trailing :SS, as returned by SQL time columns, is accepted and dropped.
func ParseClock(s string) (Clock, error) {
	raw := s
	if len(s) == 8 && s[5] == ':' {
		if _, ok := digits(s[6:8]); !ok {
			return 0, &InvalidDateError{Field: "time", Value: raw, Reason: "expected HH:MM"}
		}
		s = s[:5]
	}
	if len(s) != 5 || s[2] != ':' {
		return 0, &InvalidDateError{Field: "time", Value: raw, Reason: "expected HH:MM"}
	}
	h, ok1 := digits(s[0:2])
	m, ok2 := digits(s[3:5])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, &InvalidDateError{Field: "time", Value: raw, Reason: "expected HH:MM"}
	}
	return Clock(h*60 + m), nil
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

// String formats the clock as zero padded HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// EndTime adds a duration in hours to start and wraps past midnight.
// The duration is rounded to whole minutes.
func EndTime(start Clock, hours float64) Clock {
	total := int(start) + int(math.Round(hours*60))
	total %= minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return Clock(total)
}

// ComputeEndTime is EndTime over the HH:MM string form. Negative durations are rejected.
func ComputeEndTime(start string, hours float64) (string, error) {
	if hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return "", &InvalidDateError{Field: "duration", Value: strconv.FormatFloat(hours, 'f', -1, 64), Reason: "must be a non-negative number of hours"}
	}
	c, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	return EndTime(c, hours).String(), nil
}

// Entry is anything that sits on a calendar day and may have a start time.
type Entry interface {
	CalendarDate() Date
	StartTime() (Clock, bool)
}

// sortKey treats a missing start time as midnight.
func sortKey[E Entry](e E) Clock {
	if c, ok := e.StartTime(); ok {
		return c
	}
	return 0
}

// SortByTime returns a copy of entries ordered by start time. Entries without a
// time sort as 00:00 and equal keys keep their input order.
func SortByTime[E Entry](entries []E) []E {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b E) int {
		return int(sortKey(a)) - int(sortKey(b))
	})
	return out
}

// GroupByDay buckets entries under their YYYY-MM-DD key, keeping input order within a day.
func GroupByDay[E Entry](entries []E) map[string][]E {
	out := make(map[string][]E)
	for _, e := range entries {
		key := e.CalendarDate().String()
		out[key] = append(out[key], e)
	}
	return out
}

// EntriesOn returns the entries of day ordered by start time.
func EntriesOn[E Entry](entries []E, day Date) []E {
	matched := make([]E, 0)
	for _, e := range entries {
		if e.CalendarDate() == day {
			matched = append(matched, e)
		}
	}
	return SortByTime(matched)
}
