package domain

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/tripplanner/internal/events"
	"example.com/tripplanner/internal/planner"
)

// ListPOIs returns a project's POIs split into unassigned and assigned groups.
// Assigned POIs are ordered by day and time.
func (s *Service) ListPOIs(ctx context.Context, principal Principal, projectID string) (POIGroups, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return POIGroups{}, err
	}
	pois, err := s.repo.ListPOIs(ctx, projectID)
	if err != nil {
		return POIGroups{}, err
	}
	groups := POIGroups{Unassigned: []POI{}, Assigned: []POI{}}
	for _, p := range pois {
		if p.AssignedDate == nil {
			groups.Unassigned = append(groups.Unassigned, p)
			continue
		}
		groups.Assigned = append(groups.Assigned, p)
	}
	groups.Assigned = sortAssigned(groups.Assigned)
	return groups, nil
}

type assignedPOI struct{ POI }

func (a assignedPOI) CalendarDate() planner.Date { return *a.AssignedDate }

func (a assignedPOI) StartTime() (planner.Clock, bool) {
	if a.AssignedTime == nil {
		return 0, false
	}
	return *a.AssignedTime, true
}

func sortAssigned(pois []POI) []POI {
	wrapped := make([]assignedPOI, 0, len(pois))
	for _, p := range pois {
		wrapped = append(wrapped, assignedPOI{p})
	}
	byDay := planner.GroupByDay(wrapped)
	days := make([]planner.Date, 0, len(byDay))
	seen := make(map[planner.Date]bool, len(byDay))
	for _, p := range wrapped {
		if d := p.CalendarDate(); !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	slices.SortFunc(days, planner.Date.Compare)
	out := make([]POI, 0, len(pois))
	for _, d := range days {
		for _, p := range planner.SortByTime(byDay[d.String()]) {
			out = append(out, p.POI)
		}
	}
	return out
}

// CreatePOI adds a point of interest to a project.
func (s *Service) CreatePOI(ctx context.Context, principal Principal, projectID string, in POIInput) (*POI, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	poi := POI{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      in.Name,
		Address:   in.Address,
		Category:  in.Category,
		Priority:  in.Priority,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePOI(ctx, poi, poiEvents(poi, now)...); err != nil {
		return nil, err
	}
	return &poi, nil
}

// UpdatePOI edits a point of interest. A changed address resets its coordinates.
func (s *Service) UpdatePOI(ctx context.Context, principal Principal, projectID, poiID string, in POIInput) (*POI, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	poi, err := s.repo.GetPOI(ctx, projectID, poiID)
	if err != nil {
		return nil, err
	}
	if poi.Address != in.Address {
		poi.Latitude, poi.Longitude, poi.Geocoded = nil, nil, false
		poi.GeocodeFailedAt = nil
	}
	now := s.now().UTC()
	poi.Name = in.Name
	poi.Address = in.Address
	poi.Category = in.Category
	poi.Priority = in.Priority
	poi.Notes = in.Notes
	poi.UpdatedAt = now
	if err := s.repo.UpdatePOI(ctx, *poi, poiEvents(*poi, now)...); err != nil {
		return nil, err
	}
	return poi, nil
}

// AssignPOI schedules a POI on a day, optionally at a time. An empty day clears the assignment.
func (s *Service) AssignPOI(ctx context.Context, principal Principal, projectID, poiID, day, at string) (*POI, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	poi, err := s.repo.GetPOI(ctx, projectID, poiID)
	if err != nil {
		return nil, err
	}
	poi.AssignedDate, poi.AssignedTime = nil, nil
	if day = strings.TrimSpace(day); day != "" {
		date, err := planner.ParseDate(day)
		if err != nil {
			return nil, err
		}
		poi.AssignedDate = &date
		if at = strings.TrimSpace(at); at != "" {
			clock, err := planner.ParseClock(at)
			if err != nil {
				return nil, err
			}
			poi.AssignedTime = &clock
		}
	}
	poi.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdatePOI(ctx, *poi); err != nil {
		return nil, err
	}
	return poi, nil
}

// DeletePOI removes a point of interest.
func (s *Service) DeletePOI(ctx context.Context, principal Principal, projectID, poiID string) error {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return err
	}
	return s.repo.DeletePOI(ctx, projectID, poiID)
}

func poiEvents(p POI, at time.Time) []Event {
	if !p.NeedsGeocoding() {
		return nil
	}
	return []Event{{
		Type:          events.TypePOISaved,
		AggregateType: "poi",
		AggregateID:   p.ID,
		ProjectID:     p.ProjectID,
		Payload: events.POISaved{
			POIID:      p.ID,
			ProjectID:  p.ProjectID,
			Name:       p.Name,
			Address:    p.Address,
			OccurredAt: at,
		},
	}}
}
