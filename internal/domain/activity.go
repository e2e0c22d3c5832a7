package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"example.com/tripplanner/internal/planner"
)

// Category classifies an activity for display.
type Category string

const (
	CategoryActivity   Category = "activity"
	CategoryFlight     Category = "flight"
	CategoryHotel      Category = "hotel"
	CategoryRestaurant Category = "restaurant"
)

// CategoryInfo is the presentation metadata of a category.
type CategoryInfo struct {
	Key   Category `json:"key"`
	Icon  string   `json:"icon"`
	Color string   `json:"color"`
	Label string   `json:"label"`
}

var categoryCatalog = []CategoryInfo{
	{Key: CategoryActivity, Icon: "🎯", Color: "#667eea", Label: "Activity"},
	{Key: CategoryFlight, Icon: "✈️", Color: "#f093fb", Label: "Flight"},
	{Key: CategoryHotel, Icon: "🏨", Color: "#4facfe", Label: "Hotel"},
	{Key: CategoryRestaurant, Icon: "🍽️", Color: "#43e97b", Label: "Restaurant"},
}

// Categories returns the known activity categories in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryCatalog))
	copy(out, categoryCatalog)
	return out
}

// Info returns the metadata for c.
func (c Category) Info() (CategoryInfo, bool) {
	for _, info := range categoryCatalog {
		if info.Key == c {
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := c.Info()
	return ok
}

// Activity is a dated entry of a trip.
type Activity struct {
	ID        string
	ProjectID string
	Title     string
	Date      planner.Date
	Time      *planner.Clock
	Duration  *float64
	Category  Category
	Location  string
	URL       string
	Notes     string
	Travelers []string
	Latitude  *float64
	Longitude *float64
	Geocoded  bool
	// GeocodeFailedAt is when the current location last matched nothing.
	GeocodeFailedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CalendarDate implements planner.Entry.
func (a Activity) CalendarDate() planner.Date { return a.Date }

// StartTime implements planner.Entry.
func (a Activity) StartTime() (planner.Clock, bool) {
	if a.Time == nil {
		return 0, false
	}
	return *a.Time, true
}

// EndTime returns the computed end of a timed activity with a duration.
func (a Activity) EndTime() (planner.Clock, bool) {
	if a.Time == nil || a.Duration == nil {
		return 0, false
	}
	return planner.EndTime(*a.Time, *a.Duration), true
}

// NeedsGeocoding reports whether the location still has to be resolved to coordinates.
func (a Activity) NeedsGeocoding() bool {
	return strings.TrimSpace(a.Location) != "" && !a.Geocoded
}

// GeocodeDue reports whether a pending location should be looked up now: it never failed,
// or its last failure is older than retryBefore. A zero retryBefore ignores past failures.
func (a Activity) GeocodeDue(retryBefore time.Time) bool {
	return a.NeedsGeocoding() && failureExpired(a.GeocodeFailedAt, retryBefore)
}

func failureExpired(failedAt *time.Time, retryBefore time.Time) bool {
	return retryBefore.IsZero() || failedAt == nil || failedAt.Before(retryBefore)
}

// ActivityInput carries the editable fields of an activity.
type ActivityInput struct {
	Title     string
	Date      string
	Time      string
	Duration  *float64
	Category  Category
	Location  string
	URL       string
	Notes     string
	Travelers []string
}

// Validate checks the input and returns the parsed date and time.
func (in ActivityInput) Validate() (planner.Date, *planner.Clock, error) {
	if strings.TrimSpace(in.Title) == "" {
		return planner.Date{}, nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	date, err := planner.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return planner.Date{}, nil, err
	}
	var clock *planner.Clock
	if raw := strings.TrimSpace(in.Time); raw != "" {
		c, err := planner.ParseClock(raw)
		if err != nil {
			return planner.Date{}, nil, err
		}
		clock = &c
	}
	if in.Duration != nil && (*in.Duration < 0 || math.IsNaN(*in.Duration) || math.IsInf(*in.Duration, 0)) {
		return planner.Date{}, nil, fmt.Errorf("%w: duration must be a non-negative number of hours", ErrValidation)
	}
	category := in.Category
	if category == "" {
		category = CategoryActivity
	}
	if !category.Valid() {
		return planner.Date{}, nil, fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	return date, clock, nil
}

func cleanTravelers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, name := range in {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
