// Package planner builds the calendar and planning views of a trip.
//
// Everything in this package is pure: functions take the activities, the
// day annotations and the current date as arguments and return freshly
// allocated view records. Calendar dates are handled as plain
// year/month/day triples and are never routed through a time zone, so a
// stored "2024-03-05" is the 5th of March for every caller.
package planner

import (
	"fmt"
	"time"
)

// InvalidDateError reports a malformed date, time of day or duration.
type InvalidDateError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Date is a calendar day without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalises the supplied fields, so NewDate(2024, 1, 32) is 1 February 2024.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a strict YYYY-MM-DD string by extracting the integer fields.
func ParseDate(s string) (Date, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return Date{}, &InvalidDateError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	year, ok1 := digits(s[0:4])
	month, ok2 := digits(s[5:7])
	day, ok3 := digits(s[8:10])
	if !ok1 || !ok2 || !ok3 {
		return Date{}, &InvalidDateError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	if month < 1 || month > 12 {
		return Date{}, &InvalidDateError{Field: "date", Value: s, Reason: "month out of range"}
	}
	if day < 1 || day > DaysIn(year, time.Month(month)) {
		return Date{}, &InvalidDateError{Field: "date", Value: s, Reason: "day out of range"}
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// MustParseDate is ParseDate for literals known to be valid. It panics otherwise.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// String formats the date as YYYY-MM-DD. The result is also the day key used by annotation maps.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns noon UTC on d. Noon keeps arithmetic clear of any DST edge.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// DaysUntil returns the signed number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Round(time.Hour).Hours() / 24)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SameCalendarDay reports whether the YYYY-MM-DD string names the calendar day of t,
// read from t's own location. An empty string is never the same day.
func SameCalendarDay(date string, t time.Time) (bool, error) {
	if date == "" {
		return false, nil
	}
	d, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	return d == DateOf(t), nil
}

// WeekStart returns the Monday of the week containing d.
func WeekStart(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// WeekNumber returns the ISO-8601 year and week of d. Days at the edge of a
// year may belong to week 52/53 of the previous ISO year or week 1 of the next.
func WeekNumber(d Date) (year, week int) {
	return d.Time().ISOWeek()
}
