package api

import (
	"errors"
	"strings"
	"time"

	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/planner"
)

// ProjectRequest is the payload for creating or updating a project.
type ProjectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Travelers   []string `json:"travelers"`
}

// Validate ensures request correctness.
func (r ProjectRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (r ProjectRequest) input() domain.ProjectInput {
	return domain.ProjectInput{Name: r.Name, Description: r.Description, Travelers: r.Travelers}
}

// ProjectView exposes a project with the caller's access level.
type ProjectView struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Travelers   []string  `json:"travelers"`
	Access      string    `json:"access,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListProjectsResponse packages list results.
type ListProjectsResponse struct {
	Items      []ProjectView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	Bootstrap  bool          `json:"bootstrapped,omitempty"`
}

func toProjectView(p domain.Project, access domain.Access) ProjectView {
	view := ProjectView{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Travelers:   nonNil(p.Travelers),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if access != domain.AccessNone {
		view.Access = access.String()
	}
	return view
}

// ShareRequest is the payload for POST /v1/projects/{id}/shares.
type ShareRequest struct {
	Email      string            `json:"email"`
	Permission domain.Permission `json:"permission"`
}

// ShareView describes a project share.
type ShareView struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	Email      string            `json:"email"`
	Permission domain.Permission `json:"permission"`
	CreatedAt  time.Time         `json:"created_at"`
}

func toShareView(s domain.Share) ShareView {
	return ShareView{ID: s.ID, ProjectID: s.ProjectID, Email: s.Email, Permission: s.Permission, CreatedAt: s.CreatedAt}
}

// ActivityRequest is the payload for creating or updating an activity.
type ActivityRequest struct {
	Title     string          `json:"title"`
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	Duration  *float64        `json:"duration"`
	Category  domain.Category `json:"category"`
	Location  string          `json:"location"`
	URL       string          `json:"url"`
	Notes     string          `json:"notes"`
	Travelers []string        `json:"travelers"`
}

func (r ActivityRequest) input() domain.ActivityInput {
	return domain.ActivityInput{
		Title:     r.Title,
		Date:      r.Date,
		Time:      r.Time,
		Duration:  r.Duration,
		Category:  r.Category,
		Location:  r.Location,
		URL:       r.URL,
		Notes:     r.Notes,
		Travelers: r.Travelers,
	}
}

// ActivityView exposes an activity with its computed end time and category styling.
type ActivityView struct {
	ID        string              `json:"id"`
	ProjectID string              `json:"project_id"`
	Title     string              `json:"title"`
	Date      planner.Date        `json:"date"`
	Time      *planner.Clock      `json:"time,omitempty"`
	EndTime   *planner.Clock      `json:"end_time,omitempty"`
	Duration  *float64            `json:"duration,omitempty"`
	Category  domain.CategoryInfo `json:"category"`
	Location  string              `json:"location,omitempty"`
	URL       string              `json:"url,omitempty"`
	Notes     string              `json:"notes,omitempty"`
	Travelers []string            `json:"travelers"`
	Position  *CoordinatesView    `json:"position,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// CoordinatesView is a resolved position.
type CoordinatesView struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func position(geocoded bool, lat, lng *float64) *CoordinatesView {
	if !geocoded || lat == nil || lng == nil {
		return nil
	}
	return &CoordinatesView{Lat: *lat, Lng: *lng}
}

func toActivityView(a domain.Activity) ActivityView {
	info, ok := a.Category.Info()
	if !ok {
		info, _ = domain.CategoryActivity.Info()
	}
	view := ActivityView{
		ID:        a.ID,
		ProjectID: a.ProjectID,
		Title:     a.Title,
		Date:      a.Date,
		Time:      a.Time,
		Duration:  a.Duration,
		Category:  info,
		Location:  a.Location,
		URL:       a.URL,
		Notes:     a.Notes,
		Travelers: nonNil(a.Travelers),
		Position:  position(a.Geocoded, a.Latitude, a.Longitude),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if end, ok := a.EndTime(); ok {
		view.EndTime = &end
	}
	return view
}

func toActivityViews(in []domain.Activity) []ActivityView {
	out := make([]ActivityView, 0, len(in))
	for _, a := range in {
		out = append(out, toActivityView(a))
	}
	return out
}

// AnnotationRequest is the payload for PUT /v1/projects/{id}/annotations/{date}.
type AnnotationRequest struct {
	Label    string `json:"label"`
	Location string `json:"location"`
}

// AttachmentView describes a stored attachment.
type AttachmentView struct {
	ID          string    `json:"id"`
	ActivityID  string    `json:"activity_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAttachmentView(a domain.Attachment, url string) AttachmentView {
	return AttachmentView{
		ID:          a.ID,
		ActivityID:  a.ActivityID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        a.Size,
		URL:         url,
		CreatedAt:   a.CreatedAt,
	}
}

// CalendarResponse is the month grid plus the selected day's activities.
type CalendarResponse struct {
	Grid               planner.MonthGrid `json:"grid"`
	Today              planner.Date      `json:"today"`
	Selected           planner.Date      `json:"selected"`
	SelectedActivities []ActivityView    `json:"selected_activities"`
}

// PlanningDay is one day of the year planning.
type PlanningDay struct {
	Date       planner.Date        `json:"date"`
	Key        string              `json:"key"`
	IsToday    bool                `json:"is_today"`
	Annotation *planner.Annotation `json:"annotation,omitempty"`
	Activities []ActivityView      `json:"activities"`
}

// PlanningWeek is one Monday-to-Sunday row of the year planning.
type PlanningWeek struct {
	Start   planner.Date  `json:"start"`
	End     planner.Date  `json:"end"`
	ISOYear int           `json:"iso_year"`
	Number  int           `json:"number"`
	Days    []PlanningDay `json:"days"`
}

// PlanningResponse is the year planning with the week the client should scroll to.
type PlanningResponse struct {
	Year     int            `json:"year"`
	Today    planner.Date   `json:"today"`
	Weeks    []PlanningWeek `json:"weeks"`
	ScrollTo *planner.Date  `json:"scroll_to,omitempty"`
}

func toPlanningWeek(w planner.Week[domain.Activity]) PlanningWeek {
	week := PlanningWeek{Start: w.Start, End: w.End, ISOYear: w.ISOYear, Number: w.Number, Days: make([]PlanningDay, 0, len(w.Days))}
	for _, d := range w.Days {
		week.Days = append(week.Days, PlanningDay{
			Date:       d.Date,
			Key:        d.Key,
			IsToday:    d.IsToday,
			Annotation: d.Annotation,
			Activities: toActivityViews(d.Entries),
		})
	}
	return week
}

// POIRequest is the payload for creating or updating a point of interest.
type POIRequest struct {
	Name     string             `json:"name"`
	Address  string             `json:"address"`
	Category domain.POICategory `json:"category"`
	Priority domain.Priority    `json:"priority"`
	Notes    string             `json:"notes"`
}

func (r POIRequest) input() domain.POIInput {
	return domain.POIInput{Name: r.Name, Address: r.Address, Category: r.Category, Priority: r.Priority, Notes: r.Notes}
}

// AssignRequest is the payload for POST /v1/projects/{id}/pois/{poiID}/assign.
type AssignRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// POIView describes a point of interest.
type POIView struct {
	ID           string             `json:"id"`
	ProjectID    string             `json:"project_id"`
	Name         string             `json:"name"`
	Address      string             `json:"address"`
	Category     domain.POICategory `json:"category"`
	Priority     domain.Priority    `json:"priority"`
	Notes        string             `json:"notes,omitempty"`
	AssignedDate *planner.Date      `json:"assigned_date,omitempty"`
	AssignedTime *planner.Clock     `json:"assigned_time,omitempty"`
	Position     *CoordinatesView   `json:"position,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toPOIView(p domain.POI) POIView {
	return POIView{
		ID:           p.ID,
		ProjectID:    p.ProjectID,
		Name:         p.Name,
		Address:      p.Address,
		Category:     p.Category,
		Priority:     p.Priority,
		Notes:        p.Notes,
		AssignedDate: p.AssignedDate,
		AssignedTime: p.AssignedTime,
		Position:     position(p.Geocoded, p.Latitude, p.Longitude),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toPOIViews(in []domain.POI) []POIView {
	out := make([]POIView, 0, len(in))
	for _, p := range in {
		out = append(out, toPOIView(p))
	}
	return out
}

// POIListResponse groups POIs by whether they are scheduled.
type POIListResponse struct {
	Unassigned []POIView `json:"unassigned"`
	Assigned   []POIView `json:"assigned"`
}

// GeocodeReportView reports a geocoding pass.
type GeocodeReportView struct {
	Geocoded int `json:"geocoded"`
	Failed   int `json:"failed"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
