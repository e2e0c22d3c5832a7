// Package memory provides an in-process repository for local development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/planner"
)

// Repository stores trip data in maps guarded by a RWMutex.
type Repository struct {
	mu          sync.RWMutex
	projects    map[string]domain.Project
	shares      map[string]domain.Share
	activities  map[string]domain.Activity
	annotations map[string]map[planner.Date]planner.Annotation
	pois        map[string]domain.POI
	attachments map[string]domain.Attachment
	events      []domain.Event
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		projects:    make(map[string]domain.Project),
		shares:      make(map[string]domain.Share),
		activities:  make(map[string]domain.Activity),
		annotations: make(map[string]map[planner.Date]planner.Annotation),
		pois:        make(map[string]domain.POI),
		attachments: make(map[string]domain.Attachment),
	}
}

var _ domain.Repository = (*Repository)(nil)

// Events returns the events recorded alongside writes, oldest first.
func (r *Repository) Events() []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

// ListProjects implements domain.ProjectRepository.
func (r *Repository) ListProjects(ctx context.Context, principal domain.Principal, cursor *domain.Cursor, limit int) ([]domain.Project, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email := domain.NormalizeEmail(principal.Email)
	shared := make(map[string]bool)
	if email != "" {
		for _, s := range r.shares {
			if s.Email == email {
				shared[s.ProjectID] = true
			}
		}
	}

	visible := make([]domain.Project, 0)
	for _, p := range r.projects {
		if p.OwnerID == principal.UserID || shared[p.ID] {
			visible = append(visible, cloneProject(p))
		}
	}
	slices.SortFunc(visible, func(a, b domain.Project) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if cursor != nil {
		idx := sort.Search(len(visible), func(i int) bool {
			p := visible[i]
			return p.CreatedAt.Before(cursor.CreatedAt) || (p.CreatedAt.Equal(cursor.CreatedAt) && p.ID < cursor.ID)
		})
		visible = visible[idx:]
	}
	if limit <= 0 || limit > len(visible) {
		limit = len(visible)
	}
	page := visible[:limit]

	var next *domain.Cursor
	if len(page) > 0 && len(page) < len(visible) {
		last := page[len(page)-1]
		next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, next, nil
}

// GetProject implements domain.ProjectRepository.
func (r *Repository) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil, notFound("project", projectID)
	}
	p = cloneProject(p)
	return &p, nil
}

// CreateProject implements domain.ProjectRepository.
func (r *Repository) CreateProject(ctx context.Context, project domain.Project, activities []domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[project.ID]; exists {
		return fmt.Errorf("project %s: %w", project.ID, domain.ErrConflict)
	}
	r.projects[project.ID] = cloneProject(project)
	for _, a := range activities {
		r.activities[a.ID] = cloneActivity(a)
	}
	return nil
}

// UpdateProject implements domain.ProjectRepository.
func (r *Repository) UpdateProject(ctx context.Context, project domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[project.ID]; !ok {
		return notFound("project", project.ID)
	}
	r.projects[project.ID] = cloneProject(project)
	return nil
}

// DeleteProject implements domain.ProjectRepository. Dependent rows go with the project.
func (r *Repository) DeleteProject(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return notFound("project", projectID)
	}
	delete(r.projects, projectID)
	delete(r.annotations, projectID)
	for id, s := range r.shares {
		if s.ProjectID == projectID {
			delete(r.shares, id)
		}
	}
	for id, a := range r.activities {
		if a.ProjectID == projectID {
			delete(r.activities, id)
		}
	}
	for id, p := range r.pois {
		if p.ProjectID == projectID {
			delete(r.pois, id)
		}
	}
	for id, att := range r.attachments {
		if att.ProjectID == projectID {
			delete(r.attachments, id)
		}
	}
	return nil
}

// ListShares implements domain.ProjectRepository.
func (r *Repository) ListShares(ctx context.Context, projectID string) ([]domain.Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Share, 0)
	for _, s := range r.shares {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b domain.Share) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Email, b.Email)
	})
	return out, nil
}

// FindShare implements domain.ProjectRepository.
func (r *Repository) FindShare(ctx context.Context, projectID, email string) (*domain.Share, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = domain.NormalizeEmail(email)
	for _, s := range r.shares {
		if s.ProjectID == projectID && s.Email == email {
			return &s, nil
		}
	}
	return nil, notFound("share", email)
}

// CreateShare implements domain.ProjectRepository.
func (r *Repository) CreateShare(ctx context.Context, share domain.Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[share.ProjectID]; !ok {
		return notFound("project", share.ProjectID)
	}
	for _, s := range r.shares {
		if s.ProjectID == share.ProjectID && s.Email == share.Email {
			return fmt.Errorf("share for %s: %w", share.Email, domain.ErrConflict)
		}
	}
	r.shares[share.ID] = share
	return nil
}

// DeleteShare implements domain.ProjectRepository.
func (r *Repository) DeleteShare(ctx context.Context, projectID, shareID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[shareID]
	if !ok || s.ProjectID != projectID {
		return notFound("share", shareID)
	}
	delete(r.shares, shareID)
	return nil
}

// ListActivities implements domain.ActivityRepository.
func (r *Repository) ListActivities(ctx context.Context, projectID string) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Activity, 0)
	for _, a := range r.activities {
		if a.ProjectID == projectID {
			out = append(out, cloneActivity(a))
		}
	}
	slices.SortFunc(out, compareActivities)
	return out, nil
}

func compareActivities(a, b domain.Activity) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	// Untimed activities sort as 00:00.
	at, _ := a.StartTime()
	bt, _ := b.StartTime()
	if c := cmp.Compare(at, bt); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// GetActivity implements domain.ActivityRepository.
func (r *Repository) GetActivity(ctx context.Context, projectID, activityID string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.activities[activityID]
	if !ok || a.ProjectID != projectID {
		return nil, notFound("activity", activityID)
	}
	a = cloneActivity(a)
	return &a, nil
}

// CreateActivity implements domain.ActivityRepository.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[activity.ProjectID]; !ok {
		return notFound("project", activity.ProjectID)
	}
	r.activities[activity.ID] = cloneActivity(activity)
	r.events = append(r.events, events...)
	return nil
}

// UpdateActivity implements domain.ActivityRepository.
func (r *Repository) UpdateActivity(ctx context.Context, activity domain.Activity, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.activities[activity.ID]
	if !ok || existing.ProjectID != activity.ProjectID {
		return notFound("activity", activity.ID)
	}
	r.activities[activity.ID] = cloneActivity(activity)
	r.events = append(r.events, events...)
	return nil
}

// DeleteActivity implements domain.ActivityRepository.
func (r *Repository) DeleteActivity(ctx context.Context, projectID, activityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[activityID]
	if !ok || a.ProjectID != projectID {
		return notFound("activity", activityID)
	}
	delete(r.activities, activityID)
	for id, att := range r.attachments {
		if att.ActivityID == activityID {
			delete(r.attachments, id)
		}
	}
	return nil
}

// SetActivityCoordinates implements domain.ActivityRepository.
func (r *Repository) SetActivityCoordinates(ctx context.Context, activityID, location string, lat, lng float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[activityID]
	if !ok || a.Location != location {
		return false, nil
	}
	a.Latitude, a.Longitude, a.Geocoded = &lat, &lng, true
	a.GeocodeFailedAt = nil
	r.activities[activityID] = a
	return true, nil
}

// MarkActivityGeocodeFailed implements domain.ActivityRepository.
func (r *Repository) MarkActivityGeocodeFailed(ctx context.Context, activityID, location string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[activityID]
	if !ok || a.Location != location || a.Geocoded {
		return nil
	}
	a.GeocodeFailedAt = &at
	r.activities[activityID] = a
	return nil
}

// ProjectsPendingGeocode implements domain.ActivityRepository.
func (r *Repository) ProjectsPendingGeocode(ctx context.Context, retryBefore time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pending := make(map[string]struct{})
	for _, a := range r.activities {
		if a.GeocodeDue(retryBefore) {
			pending[a.ProjectID] = struct{}{}
		}
	}
	for _, p := range r.pois {
		if p.GeocodeDue(retryBefore) {
			pending[p.ProjectID] = struct{}{}
		}
	}
	out := make([]string, 0, len(pending))
	for id := range pending {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

// Annotations implements domain.AnnotationRepository.
func (r *Repository) Annotations(ctx context.Context, projectID string) ([]domain.DayAnnotation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	days := r.annotations[projectID]
	out := make([]domain.DayAnnotation, 0, len(days))
	for d, a := range days {
		out = append(out, domain.DayAnnotation{ProjectID: projectID, Date: d, Annotation: a})
	}
	slices.SortFunc(out, func(a, b domain.DayAnnotation) int { return a.Date.Compare(b.Date) })
	return out, nil
}

// UpsertAnnotation implements domain.AnnotationRepository.
func (r *Repository) UpsertAnnotation(ctx context.Context, annotation domain.DayAnnotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[annotation.ProjectID]; !ok {
		return notFound("project", annotation.ProjectID)
	}
	days, ok := r.annotations[annotation.ProjectID]
	if !ok {
		days = make(map[planner.Date]planner.Annotation)
		r.annotations[annotation.ProjectID] = days
	}
	days[annotation.Date] = annotation.Annotation
	return nil
}

// DeleteAnnotation implements domain.AnnotationRepository.
func (r *Repository) DeleteAnnotation(ctx context.Context, projectID string, date planner.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.annotations[projectID], date)
	return nil
}

// ListPOIs implements domain.POIRepository.
func (r *Repository) ListPOIs(ctx context.Context, projectID string) ([]domain.POI, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.POI, 0)
	for _, p := range r.pois {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.POI) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// GetPOI implements domain.POIRepository.
func (r *Repository) GetPOI(ctx context.Context, projectID, poiID string) (*domain.POI, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pois[poiID]
	if !ok || p.ProjectID != projectID {
		return nil, notFound("poi", poiID)
	}
	return &p, nil
}

// CreatePOI implements domain.POIRepository.
func (r *Repository) CreatePOI(ctx context.Context, poi domain.POI, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[poi.ProjectID]; !ok {
		return notFound("project", poi.ProjectID)
	}
	r.pois[poi.ID] = poi
	r.events = append(r.events, events...)
	return nil
}

// UpdatePOI implements domain.POIRepository.
func (r *Repository) UpdatePOI(ctx context.Context, poi domain.POI, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.pois[poi.ID]
	if !ok || existing.ProjectID != poi.ProjectID {
		return notFound("poi", poi.ID)
	}
	r.pois[poi.ID] = poi
	r.events = append(r.events, events...)
	return nil
}

// DeletePOI implements domain.POIRepository.
func (r *Repository) DeletePOI(ctx context.Context, projectID, poiID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pois[poiID]
	if !ok || p.ProjectID != projectID {
		return notFound("poi", poiID)
	}
	delete(r.pois, poiID)
	return nil
}

// SetPOICoordinates implements domain.POIRepository.
func (r *Repository) SetPOICoordinates(ctx context.Context, poiID, address string, lat, lng float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pois[poiID]
	if !ok || p.Address != address {
		return false, nil
	}
	p.Latitude, p.Longitude, p.Geocoded = &lat, &lng, true
	p.GeocodeFailedAt = nil
	r.pois[poiID] = p
	return true, nil
}

// MarkPOIGeocodeFailed implements domain.POIRepository.
func (r *Repository) MarkPOIGeocodeFailed(ctx context.Context, poiID, address string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pois[poiID]
	if !ok || p.Address != address || p.Geocoded {
		return nil
	}
	p.GeocodeFailedAt = &at
	r.pois[poiID] = p
	return nil
}

// ListAttachments implements domain.AttachmentRepository.
func (r *Repository) ListAttachments(ctx context.Context, activityID string) ([]domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Attachment, 0)
	for _, att := range r.attachments {
		if att.ActivityID == activityID {
			out = append(out, att)
		}
	}
	slices.SortFunc(out, func(a, b domain.Attachment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// GetAttachment implements domain.AttachmentRepository.
func (r *Repository) GetAttachment(ctx context.Context, activityID, attachmentID string) (*domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	att, ok := r.attachments[attachmentID]
	if !ok || att.ActivityID != activityID {
		return nil, notFound("attachment", attachmentID)
	}
	return &att, nil
}

// CreateAttachment implements domain.AttachmentRepository.
func (r *Repository) CreateAttachment(ctx context.Context, attachment domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activities[attachment.ActivityID]; !ok {
		return notFound("activity", attachment.ActivityID)
	}
	r.attachments[attachment.ID] = attachment
	return nil
}

// DeleteAttachment implements domain.AttachmentRepository.
func (r *Repository) DeleteAttachment(ctx context.Context, activityID, attachmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	att, ok := r.attachments[attachmentID]
	if !ok || att.ActivityID != activityID {
		return notFound("attachment", attachmentID)
	}
	delete(r.attachments, attachmentID)
	return nil
}

func cloneProject(p domain.Project) domain.Project {
	p.Travelers = slices.Clone(p.Travelers)
	return p
}

func cloneActivity(a domain.Activity) domain.Activity {
	a.Travelers = slices.Clone(a.Travelers)
	return a
}
