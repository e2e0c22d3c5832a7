package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoMatch is returned by a Geocoder when a query resolves to no place.
	ErrNoMatch = errors.New("no geocoding match")
	// ErrGeocoderUnavailable is returned when geocoding is used without a Geocoder.
	ErrGeocoderUnavailable = errors.New("geocoder is not configured")
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Geocoder resolves a free-text location to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, query string) (Coordinates, error)
}

// GeocodeReport counts the outcome of a geocoding pass.
type GeocodeReport struct {
	Geocoded int
	Failed   int
}

// Add accumulates other into r.
func (r *GeocodeReport) Add(other GeocodeReport) {
	r.Geocoded += other.Geocoded
	r.Failed += other.Failed
}

// GeocodeProject resolves every pending activity and POI location of a project, including
// locations that recently matched nothing.
func (s *Service) GeocodeProject(ctx context.Context, principal Principal, projectID string) (GeocodeReport, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return GeocodeReport{}, err
	}
	return s.GeocodePending(ctx, projectID)
}

// GeocodePending resolves the pending locations of a project one at a time. Individual
// failures are counted, not returned; only repository and context errors abort the pass.
func (s *Service) GeocodePending(ctx context.Context, projectID string) (GeocodeReport, error) {
	return s.geocodeDue(ctx, projectID, time.Time{})
}

func (s *Service) retryBefore() time.Time {
	return s.now().UTC().Add(-s.retryAfter)
}

func (s *Service) geocodeDue(ctx context.Context, projectID string, retryBefore time.Time) (GeocodeReport, error) {
	if s.geocoder == nil {
		return GeocodeReport{}, ErrGeocoderUnavailable
	}
	var report GeocodeReport

	activities, err := s.repo.ListActivities(ctx, projectID)
	if err != nil {
		return report, err
	}
	for _, a := range activities {
		if !a.GeocodeDue(retryBefore) {
			continue
		}
		ok, err := s.geocodeActivity(ctx, a)
		if err != nil {
			return report, err
		}
		if ok {
			report.Geocoded++
		} else {
			report.Failed++
		}
	}

	pois, err := s.repo.ListPOIs(ctx, projectID)
	if err != nil {
		return report, err
	}
	for _, p := range pois {
		if !p.GeocodeDue(retryBefore) {
			continue
		}
		ok, err := s.geocodePOI(ctx, p)
		if err != nil {
			return report, err
		}
		if ok {
			report.Geocoded++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

// SweepPendingGeocodes geocodes every project with unresolved locations. Locations that
// matched nothing are skipped until the retry delay has passed.
func (s *Service) SweepPendingGeocodes(ctx context.Context) (GeocodeReport, error) {
	retryBefore := s.retryBefore()
	projects, err := s.repo.ProjectsPendingGeocode(ctx, retryBefore)
	if err != nil {
		return GeocodeReport{}, err
	}
	var total GeocodeReport
	for _, projectID := range projects {
		report, err := s.geocodeDue(ctx, projectID, retryBefore)
		total.Add(report)
		if err != nil {
			return total, fmt.Errorf("geocode project %s: %w", projectID, err)
		}
	}
	return total, nil
}

// GeocodeActivity resolves the location of one activity if it is due.
func (s *Service) GeocodeActivity(ctx context.Context, projectID, activityID string) error {
	if s.geocoder == nil {
		return ErrGeocoderUnavailable
	}
	a, err := s.repo.GetActivity(ctx, projectID, activityID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !a.GeocodeDue(s.retryBefore()) {
		return nil
	}
	_, err = s.geocodeActivity(ctx, *a)
	return err
}

// GeocodePOI resolves the address of one POI if it is due.
func (s *Service) GeocodePOI(ctx context.Context, projectID, poiID string) error {
	if s.geocoder == nil {
		return ErrGeocoderUnavailable
	}
	p, err := s.repo.GetPOI(ctx, projectID, poiID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !p.GeocodeDue(s.retryBefore()) {
		return nil
	}
	_, err = s.geocodePOI(ctx, *p)
	return err
}

func (s *Service) geocodeActivity(ctx context.Context, a Activity) (bool, error) {
	return s.locate(ctx, a.Location,
		func(c Coordinates) (bool, error) {
			return s.repo.SetActivityCoordinates(ctx, a.ID, a.Location, c.Lat, c.Lng)
		},
		func(at time.Time) error {
			return s.repo.MarkActivityGeocodeFailed(ctx, a.ID, a.Location, at)
		},
	)
}

func (s *Service) geocodePOI(ctx context.Context, p POI) (bool, error) {
	return s.locate(ctx, p.Address,
		func(c Coordinates) (bool, error) {
			return s.repo.SetPOICoordinates(ctx, p.ID, p.Address, c.Lat, c.Lng)
		},
		func(at time.Time) error {
			return s.repo.MarkPOIGeocodeFailed(ctx, p.ID, p.Address, at)
		},
	)
}

// locate geocodes query and stores the result. It reports false for lookups that failed,
// matched nothing, or finished after the location was edited; a returned error is fatal to
// the caller's pass. Only a lookup that matched nothing is recorded as failed.
func (s *Service) locate(ctx context.Context, query string, store func(Coordinates) (bool, error), fail func(time.Time) error) (bool, error) {
	coords, err := s.geocoder.Locate(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if errors.Is(err, ErrNoMatch) {
			return false, fail(s.now().UTC())
		}
		s.logger.Warn("geocoding failed", "query", query, "error", err)
		return false, nil
	}
	stored, err := store(coords)
	if err != nil {
		return false, err
	}
	if !stored {
		s.logger.Debug("discarded geocode for an edited location", "query", query)
	}
	return stored, nil
}
