package domain

import (
	"context"
	"time"

	"example.com/tripplanner/internal/planner"
)

// Event is a domain event recorded in the same transaction as the write that produced it.
type Event struct {
	Type          string
	AggregateType string
	AggregateID   string
	ProjectID     string
	Payload       any
}

// Cursor models the project pagination token.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// DayAnnotation is the stored annotation of one project day.
type DayAnnotation struct {
	ProjectID string
	Date      planner.Date
	planner.Annotation
}

// ProjectRepository persists projects and their shares.
type ProjectRepository interface {
	// ListProjects returns projects owned by or shared with the principal, newest first.
	ListProjects(ctx context.Context, principal Principal, cursor *Cursor, limit int) ([]Project, *Cursor, error)
	GetProject(ctx context.Context, projectID string) (*Project, error)
	CreateProject(ctx context.Context, project Project, activities []Activity) error
	UpdateProject(ctx context.Context, project Project) error
	DeleteProject(ctx context.Context, projectID string) error

	ListShares(ctx context.Context, projectID string) ([]Share, error)
	FindShare(ctx context.Context, projectID, email string) (*Share, error)
	CreateShare(ctx context.Context, share Share) error
	DeleteShare(ctx context.Context, projectID, shareID string) error
}

// ActivityRepository persists activities.
type ActivityRepository interface {
	// ListActivities returns a project's activities ordered by date, then start time with untimed
	// activities counted as 00:00, then creation time.
	ListActivities(ctx context.Context, projectID string) ([]Activity, error)
	GetActivity(ctx context.Context, projectID, activityID string) (*Activity, error)
	CreateActivity(ctx context.Context, activity Activity, events ...Event) error
	UpdateActivity(ctx context.Context, activity Activity, events ...Event) error
	DeleteActivity(ctx context.Context, projectID, activityID string) error
	// SetActivityCoordinates stores coordinates resolved for location. It reports false, without
	// error, when the activity is gone or its location has changed since the lookup started.
	SetActivityCoordinates(ctx context.Context, activityID, location string, lat, lng float64) (bool, error)
	// MarkActivityGeocodeFailed records that location matched nothing, unless it has changed since.
	MarkActivityGeocodeFailed(ctx context.Context, activityID, location string, at time.Time) error
	// ProjectsPendingGeocode lists projects holding activities or POIs with unresolved locations
	// that never failed or last failed before retryBefore.
	ProjectsPendingGeocode(ctx context.Context, retryBefore time.Time) ([]string, error)
}

// AnnotationRepository persists day annotations keyed by (project, date).
type AnnotationRepository interface {
	Annotations(ctx context.Context, projectID string) ([]DayAnnotation, error)
	UpsertAnnotation(ctx context.Context, annotation DayAnnotation) error
	// DeleteAnnotation removes the annotation of a day. Deleting a missing annotation is not an error.
	DeleteAnnotation(ctx context.Context, projectID string, date planner.Date) error
}

// POIRepository persists points of interest.
type POIRepository interface {
	ListPOIs(ctx context.Context, projectID string) ([]POI, error)
	GetPOI(ctx context.Context, projectID, poiID string) (*POI, error)
	CreatePOI(ctx context.Context, poi POI, events ...Event) error
	UpdatePOI(ctx context.Context, poi POI, events ...Event) error
	DeletePOI(ctx context.Context, projectID, poiID string) error
	SetPOICoordinates(ctx context.Context, poiID, address string, lat, lng float64) (bool, error)
	MarkPOIGeocodeFailed(ctx context.Context, poiID, address string, at time.Time) error
}

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	ListAttachments(ctx context.Context, activityID string) ([]Attachment, error)
	GetAttachment(ctx context.Context, activityID, attachmentID string) (*Attachment, error)
	CreateAttachment(ctx context.Context, attachment Attachment) error
	DeleteAttachment(ctx context.Context, activityID, attachmentID string) error
}

// Repository captures every persistence operation the service needs.
type Repository interface {
	ProjectRepository
	ActivityRepository
	AnnotationRepository
	POIRepository
	AttachmentRepository
}
