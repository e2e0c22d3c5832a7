package planner

import "strings"

// Annotation is the free-text label and location a traveller attaches to a day.
type Annotation struct {
	Label    string `json:"label,omitempty"`
	Location string `json:"location,omitempty"`
}

// IsEmpty reports whether both fields are blank.
func (a Annotation) IsEmpty() bool {
	return strings.TrimSpace(a.Label) == "" && strings.TrimSpace(a.Location) == ""
}

// Day is one day of the year planning.
type Day[E Entry] struct {
	Date       Date        `json:"date"`
	Key        string      `json:"key"`
	IsToday    bool        `json:"is_today"`
	Annotation *Annotation `json:"annotation,omitempty"`
	Entries    []E         `json:"entries"`
}

// Week is seven consecutive days starting on a Monday.
type Week[E Entry] struct {
	Start   Date      `json:"start"`
	End     Date      `json:"end"`
	ISOYear int       `json:"iso_year"`
	Number  int       `json:"number"`
	Days    [7]Day[E] `json:"days"`
}

// Contains reports whether d falls within the week.
func (w Week[E]) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// BuildYearPlanning returns every Monday-first week touching year, from the
// week of 1 January through the week of 31 December. Annotations are keyed by
// YYYY-MM-DD.
func BuildYearPlanning[E Entry](year int, entries []E, annotations map[string]Annotation, today Date) []Week[E] {
	byDay := GroupByDay(entries)

	first := WeekStart(Date{Year: year, Month: 1, Day: 1})
	last := WeekStart(Date{Year: year, Month: 12, Day: 31})

	weeks := make([]Week[E], 0, 54)
	for start := first; !start.After(last); start = start.AddDays(7) {
		isoYear, number := WeekNumber(start)
		w := Week[E]{
			Start:   start,
			End:     start.AddDays(6),
			ISOYear: isoYear,
			Number:  number,
		}
		for i := range w.Days {
			d := start.AddDays(i)
			key := d.String()
			day := Day[E]{
				Date:    d,
				Key:     key,
				IsToday: d == today,
				Entries: SortByTime(byDay[key]),
			}
			if day.Entries == nil {
				day.Entries = []E{}
			}
			if a, ok := annotations[key]; ok && !a.IsEmpty() {
				day.Annotation = &a
			}
			w.Days[i] = day
		}
		weeks = append(weeks, w)
	}
	return weeks
}

// ScrollTarget picks the week a planning view should open on: the week of the
// earliest entry when that entry lies after today, the week of today otherwise.
// It reports false when the chosen week is not part of weeks.
func ScrollTarget[E Entry](weeks []Week[E], entries []E, today Date) (Week[E], bool) {
	target := today
	if len(entries) > 0 {
		earliest := entries[0].CalendarDate()
		for _, e := range entries[1:] {
			if d := e.CalendarDate(); d.Before(earliest) {
				earliest = d
			}
		}
		if earliest.After(today) {
			target = earliest
		}
	}
	for _, w := range weeks {
		if w.Contains(target) {
			return w, true
		}
	}
	return Week[E]{}, false
}
