package domain

import (
	"fmt"
	"strings"
	"time"

	"example.com/tripplanner/internal/planner"
)

// POICategory classifies a point of interest.
type POICategory string

const (
	POIActivity   POICategory = "activity"
	POIRestaurant POICategory = "restaurant"
	POISight      POICategory = "sight"
	POIHotel      POICategory = "hotel"
	POITransport  POICategory = "transport"
	POIOther      POICategory = "other"
)

// Valid reports whether c is a known POI category.
func (c POICategory) Valid() bool {
	switch c {
	case POIActivity, POIRestaurant, POISight, POIHotel, POITransport, POIOther:
		return true
	}
	return false
}

// Priority ranks how much the travellers want to visit a POI.
type Priority string

const (
	PriorityMustSee    Priority = "must_see"
	PriorityImportant  Priority = "important"
	PriorityNormal     Priority = "normal"
	PriorityIfPossible Priority = "if_possible"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityMustSee, PriorityImportant, PriorityNormal, PriorityIfPossible:
		return true
	}
	return false
}

// POI is a place the travellers want to visit, optionally assigned to a day.
type POI struct {
	ID           string
	ProjectID    string
	Name         string
	Address      string
	Category     POICategory
	Priority     Priority
	Notes        string
	AssignedDate *planner.Date
	AssignedTime *planner.Clock
	Latitude     *float64
	Longitude    *float64
	Geocoded     bool
	// GeocodeFailedAt is when the current address last matched nothing.
	GeocodeFailedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NeedsGeocoding reports whether the address still has to be resolved to coordinates.
func (p POI) NeedsGeocoding() bool {
	return strings.TrimSpace(p.Address) != "" && !p.Geocoded
}

// GeocodeDue is the POI counterpart of Activity.GeocodeDue.
func (p POI) GeocodeDue(retryBefore time.Time) bool {
	return p.NeedsGeocoding() && failureExpired(p.GeocodeFailedAt, retryBefore)
}

// POIInput carries the editable fields of a POI.
type POIInput struct {
	Name     string
	Address  string
	Category POICategory
	Priority Priority
	Notes    string
}

func (in POIInput) normalize() (POIInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" || in.Address == "" {
		return in, fmt.Errorf("%w: name and address are required", ErrValidation)
	}
	if in.Category == "" {
		in.Category = POIActivity
	}
	if in.Priority == "" {
		in.Priority = PriorityNormal
	}
	if !in.Category.Valid() {
		return in, fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	if !in.Priority.Valid() {
		return in, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	return in, nil
}

// POIGroups splits a project's POIs into those not yet scheduled and those assigned to a day.
type POIGroups struct {
	Unassigned []POI
	Assigned   []POI
}
