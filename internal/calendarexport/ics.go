// Package calendarexport renders project activities as an iCalendar feed.
package calendarexport

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"example.com/tripplanner/internal/domain"
)

const (
	productID      = "-//tripplanner//trip calendar//EN"
	uidDomain      = "@tripplanner"
	defaultLength  = time.Hour
	minutesPerHour = 60
)

// Encode writes a VCALENDAR holding one VEVENT per activity. Timed activities are placed
// at their wall-clock time in loc; untimed activities become all-day events.
func Encode(w io.Writer, project domain.Project, activities []domain.Activity, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(project.Name)

	for _, a := range activities {
		addEvent(cal, a, loc)
	}
	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func addEvent(cal *ical.Calendar, a domain.Activity, loc *time.Location) {
	event := cal.AddEvent(a.ID + uidDomain)
	event.SetDtStampTime(a.UpdatedAt)
	if !a.CreatedAt.IsZero() {
		event.SetCreatedTime(a.CreatedAt)
	}
	event.SetSummary(a.Title)

	if start, ok := a.StartTime(); ok {
		begin := time.Date(a.Date.Year, a.Date.Month, a.Date.Day, start.Hour(), start.Minute(), 0, 0, loc)
		length := defaultLength
		if a.Duration != nil {
			length = time.Duration(*a.Duration * minutesPerHour * float64(time.Minute)).Round(time.Minute)
		}
		event.SetStartAt(begin)
		event.SetEndAt(begin.Add(length))
	} else {
		event.SetAllDayStartAt(a.Date.Time())
		event.SetAllDayEndAt(a.Date.AddDays(1).Time())
	}

	if a.Location != "" {
		event.SetLocation(a.Location)
	}
	if a.URL != "" {
		event.SetURL(a.URL)
	}
	if desc := description(a); desc != "" {
		event.SetDescription(desc)
	}
	if info, ok := a.Category.Info(); ok {
		event.AddProperty(ical.ComponentPropertyCategories, info.Label)
	}
}

func description(a domain.Activity) string {
	var parts []string
	if notes := strings.TrimSpace(a.Notes); notes != "" {
		parts = append(parts, notes)
	}
	if len(a.Travelers) > 0 {
		parts = append(parts, "Travelers: "+strings.Join(a.Travelers, ", "))
	}
	return strings.Join(parts, "\n\n")
}
