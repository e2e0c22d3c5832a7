// Package domain defines the business logic of the trip planner.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/tripplanner/internal/events"
	"example.com/tripplanner/internal/planner"
)

var (
	// ErrNotFound is returned when an entity does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller can see a project but lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a write would violate a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("validation failed")
)

const (
	defaultProjectName = "My first trip"
	duplicateSuffix    = " (copy)"

	// DefaultGeocodeRetryAfter is how long a location that matched nothing waits before
	// background passes look it up again.
	DefaultGeocodeRetryAfter = 24 * time.Hour
)

// Option configures optional collaborators of the Service.
type Option func(*Service)

// WithGeocoder sets the geocoder used to resolve activity and POI locations.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithObjectStore sets the store that keeps attachment bytes.
func WithObjectStore(store ObjectStore) Option {
	return func(s *Service) { s.store = store }
}

// WithClock overrides the wall clock used to determine today.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone in which today is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithGeocodeRetryAfter sets how long unmatched locations are skipped by background geocoding.
func WithGeocodeRetryAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retryAfter = d
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service orchestrates trip workflows.
type Service struct {
	repo       Repository
	geocoder   Geocoder
	store      ObjectStore
	now        func() time.Time
	loc        *time.Location
	retryAfter time.Duration
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		now:        time.Now,
		loc:        time.Local,
		retryAfter: DefaultGeocodeRetryAfter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day in the service location.
func (s *Service) Today() planner.Date {
	return planner.DateOf(s.now().In(s.loc))
}

func (s *Service) access(ctx context.Context, principal Principal, projectID string) (*Project, Access, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, AccessNone, err
	}
	if project.OwnerID == principal.UserID {
		return project, AccessOwner, nil
	}
	email := NormalizeEmail(principal.Email)
	if email == "" {
		return project, AccessNone, nil
	}
	share, err := s.repo.FindShare(ctx, projectID, email)
	if errors.Is(err, ErrNotFound) {
		return project, AccessNone, nil
	}
	if err != nil {
		return nil, AccessNone, err
	}
	if share.Permission == PermissionWrite {
		return project, AccessWrite, nil
	}
	return project, AccessRead, nil
}

func (s *Service) requireRead(ctx context.Context, principal Principal, projectID string) (*Project, Access, error) {
	project, access, err := s.access(ctx, principal, projectID)
	if err != nil {
		return nil, access, err
	}
	if !access.CanRead() {
		return nil, access, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return project, access, nil
}

func (s *Service) requireWrite(ctx context.Context, principal Principal, projectID string) (*Project, error) {
	project, access, err := s.requireRead(ctx, principal, projectID)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite() {
		return nil, fmt.Errorf("write access to project %s: %w", projectID, ErrForbidden)
	}
	return project, nil
}

func (s *Service) requireOwner(ctx context.Context, principal Principal, projectID string) (*Project, error) {
	project, access, err := s.requireRead(ctx, principal, projectID)
	if err != nil {
		return nil, err
	}
	if access != AccessOwner {
		return nil, fmt.Errorf("owner access to project %s: %w", projectID, ErrForbidden)
	}
	return project, nil
}

// ListProjects returns the projects the principal owns or has been shared, with cursor pagination.
func (s *Service) ListProjects(ctx context.Context, principal Principal, cursor *Cursor, limit int) ([]ProjectView, *Cursor, error) {
	projects, next, err := s.repo.ListProjects(ctx, principal, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		_, access, err := s.access(ctx, principal, p.ID)
		if err != nil {
			return nil, nil, err
		}
		views = append(views, ProjectView{Project: p, Access: access})
	}
	return views, next, nil
}

// EnsureDefaultProject creates a starter project for a principal without any project.
// It reports whether a project was created.
func (s *Service) EnsureDefaultProject(ctx context.Context, principal Principal) (bool, error) {
	existing, _, err := s.repo.ListProjects(ctx, principal, nil, 1)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	if _, err := s.CreateProject(ctx, principal, ProjectInput{Name: defaultProjectName}); err != nil {
		return false, err
	}
	return true, nil
}

// GetProject fetches a project visible to the principal.
func (s *Service) GetProject(ctx context.Context, principal Principal, projectID string) (ProjectView, error) {
	project, access, err := s.requireRead(ctx, principal, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	return ProjectView{Project: *project, Access: access}, nil
}

// CreateProject creates a project owned by the principal.
func (s *Service) CreateProject(ctx context.Context, principal Principal, in ProjectInput) (*Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	now := s.now().UTC()
	project := Project{
		ID:          uuid.NewString(),
		OwnerID:     principal.UserID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Travelers:   cleanTravelers(in.Travelers),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProject(ctx, project, nil); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject edits a project. Write access is required.
func (s *Service) UpdateProject(ctx context.Context, principal Principal, projectID string, in ProjectInput) (*Project, error) {
	project, err := s.requireWrite(ctx, principal, projectID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	project.Name = name
	project.Description = strings.TrimSpace(in.Description)
	project.Travelers = cleanTravelers(in.Travelers)
	project.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateProject(ctx, *project); err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject removes a project with everything it owns. Only the owner may delete.
func (s *Service) DeleteProject(ctx context.Context, principal Principal, projectID string) error {
	if _, err := s.requireOwner(ctx, principal, projectID); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, projectID)
}

// DuplicateProject copies a project and its activities into a new project owned by the principal.
// Day annotations, POIs, shares and attachments are not copied.
func (s *Service) DuplicateProject(ctx context.Context, principal Principal, projectID string) (*Project, error) {
	source, err := s.requireOwner(ctx, principal, projectID)
	if err != nil {
		return nil, err
	}
	activities, err := s.repo.ListActivities(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	copyProject := Project{
		ID:          uuid.NewString(),
		OwnerID:     principal.UserID,
		Name:        source.Name + duplicateSuffix,
		Description: source.Description,
		Travelers:   append([]string(nil), source.Travelers...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// Creation timestamps step forward in list order so ties within a day keep the source order.
	copies := make([]Activity, 0, len(activities))
	for i, a := range activities {
		a.ID = uuid.NewString()
		a.ProjectID = copyProject.ID
		a.Travelers = append([]string(nil), a.Travelers...)
		a.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		a.UpdatedAt = now
		copies = append(copies, a)
	}
	if err := s.repo.CreateProject(ctx, copyProject, copies); err != nil {
		return nil, err
	}
	return &copyProject, nil
}

// ListShares returns the shares of a project.
func (s *Service) ListShares(ctx context.Context, principal Principal, projectID string) ([]Share, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListShares(ctx, projectID)
}

// ShareProject grants the user behind email access to a project.
func (s *Service) ShareProject(ctx context.Context, principal Principal, projectID, email string, permission Permission) (*Share, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if permission == "" {
		permission = PermissionRead
	}
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrValidation, permission)
	}
	if email == NormalizeEmail(principal.Email) {
		return nil, fmt.Errorf("%w: cannot share a project with yourself", ErrValidation)
	}
	share := Share{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Email:      email,
		Permission: permission,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateShare(ctx, share); err != nil {
		return nil, err
	}
	return &share, nil
}

// RemoveShare revokes a share.
func (s *Service) RemoveShare(ctx context.Context, principal Principal, projectID, shareID string) error {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return err
	}
	return s.repo.DeleteShare(ctx, projectID, shareID)
}

// ListActivities returns a project's activities ordered by date and time.
func (s *Service) ListActivities(ctx context.Context, principal Principal, projectID string) ([]Activity, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListActivities(ctx, projectID)
}

// GetActivity fetches one activity.
func (s *Service) GetActivity(ctx context.Context, principal Principal, projectID, activityID string) (*Activity, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return nil, err
	}
	return s.repo.GetActivity(ctx, projectID, activityID)
}

// CreateActivity adds an activity to a project and records a geocoding event when it has a location.
func (s *Service) CreateActivity(ctx context.Context, principal Principal, projectID string, in ActivityInput) (*Activity, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	date, clock, err := in.Validate()
	if err != nil {
		return nil, err
	}
	category := in.Category
	if category == "" {
		category = CategoryActivity
	}
	now := s.now().UTC()
	activity := Activity{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     strings.TrimSpace(in.Title),
		Date:      date,
		Time:      clock,
		Duration:  in.Duration,
		Category:  category,
		Location:  strings.TrimSpace(in.Location),
		URL:       strings.TrimSpace(in.URL),
		Notes:     in.Notes,
		Travelers: cleanTravelers(in.Travelers),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateActivity(ctx, activity, activityEvents(activity, now)...); err != nil {
		return nil, err
	}
	return &activity, nil
}

// UpdateActivity replaces the editable fields of an activity. A changed location resets its coordinates.
func (s *Service) UpdateActivity(ctx context.Context, principal Principal, projectID, activityID string, in ActivityInput) (*Activity, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	date, clock, err := in.Validate()
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.GetActivity(ctx, projectID, activityID)
	if err != nil {
		return nil, err
	}

	location := strings.TrimSpace(in.Location)
	if location != activity.Location {
		activity.Latitude, activity.Longitude, activity.Geocoded = nil, nil, false
		activity.GeocodeFailedAt = nil
	}
	category := in.Category
	if category == "" {
		category = CategoryActivity
	}
	now := s.now().UTC()
	activity.Title = strings.TrimSpace(in.Title)
	activity.Date = date
	activity.Time = clock
	activity.Duration = in.Duration
	activity.Category = category
	activity.Location = location
	activity.URL = strings.TrimSpace(in.URL)
	activity.Notes = in.Notes
	activity.Travelers = cleanTravelers(in.Travelers)
	activity.UpdatedAt = now

	if err := s.repo.UpdateActivity(ctx, *activity, activityEvents(*activity, now)...); err != nil {
		return nil, err
	}
	return activity, nil
}

// DeleteActivity removes an activity and the stored bytes of its attachments.
func (s *Service) DeleteActivity(ctx context.Context, principal Principal, projectID, activityID string) error {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return err
	}
	if _, err := s.repo.GetActivity(ctx, projectID, activityID); err != nil {
		return err
	}
	if s.store != nil {
		attachments, err := s.repo.ListAttachments(ctx, activityID)
		if err != nil {
			return err
		}
		for _, att := range attachments {
			if err := s.store.Remove(ctx, att.ObjectKey); err != nil {
				s.logger.Warn("attachment object removal failed", "key", att.ObjectKey, "error", err)
			}
		}
	}
	return s.repo.DeleteActivity(ctx, projectID, activityID)
}

func activityEvents(a Activity, at time.Time) []Event {
	if !a.NeedsGeocoding() {
		return nil
	}
	return []Event{{
		Type:          events.TypeActivitySaved,
		AggregateType: "activity",
		AggregateID:   a.ID,
		ProjectID:     a.ProjectID,
		Payload: events.ActivitySaved{
			ActivityID: a.ID,
			ProjectID:  a.ProjectID,
			Title:      a.Title,
			Date:       a.Date.String(),
			Location:   a.Location,
			OccurredAt: at,
		},
	}}
}
