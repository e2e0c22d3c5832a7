// Package api exposes HTTP handlers for the trip planner.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/tripplanner/internal/attachments"
	"example.com/tripplanner/internal/auth"
	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/geo"
	"example.com/tripplanner/internal/persistence"
	"example.com/tripplanner/internal/planner"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxJSONBody     = 1 << 20
)

// PlaceSearcher looks up addresses for the geocode endpoint.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]geo.Place, error)
}

// Forecaster returns the weather of a day at a location.
type Forecaster interface {
	Forecast(ctx context.Context, location string, day planner.Date) (geo.Weather, error)
}

// Option configures optional Handler collaborators.
type Option func(*Handler)

// WithPlaceSearcher enables GET /v1/geocode.
func WithPlaceSearcher(s PlaceSearcher) Option { return func(h *Handler) { h.places = s } }

// WithForecaster enables GET /v1/weather.
func WithForecaster(f Forecaster) Option { return func(h *Handler) { h.weather = f } }

// WithUploadPolicy overrides the attachment upload policy.
func WithUploadPolicy(p attachments.Policy) Option { return func(h *Handler) { h.uploads = p } }

// WithDisplayLocation sets the zone used for calendar exports.
func WithDisplayLocation(loc *time.Location) Option { return func(h *Handler) { h.loc = loc } }

// WithLogger overrides the handler logger.
func WithLogger(logger *slog.Logger) Option { return func(h *Handler) { h.logger = logger } }

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	places  PlaceSearcher
	weather Forecaster
	uploads attachments.Policy
	loc     *time.Location
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		uploads: attachments.DefaultPolicy(),
		loc:     time.UTC,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", healthz)

	mux.HandleFunc("/v1/projects", h.projects)
	mux.HandleFunc("/v1/projects/{id}", h.project)
	mux.HandleFunc("/v1/projects/{id}/duplicate", h.duplicateProject)
	mux.HandleFunc("/v1/projects/{id}/shares", h.shares)
	mux.HandleFunc("/v1/projects/{id}/shares/{shareID}", h.share)

	mux.HandleFunc("/v1/projects/{id}/activities", h.activities)
	mux.HandleFunc("/v1/projects/{id}/activities/{activityID}", h.activity)
	mux.HandleFunc("/v1/projects/{id}/activities/{activityID}/attachments", h.attachments)
	mux.HandleFunc("/v1/projects/{id}/activities/{activityID}/attachments/{attachmentID}", h.attachment)

	mux.HandleFunc("/v1/projects/{id}/annotations", h.annotations)
	mux.HandleFunc("/v1/projects/{id}/annotations/{date}", h.annotation)
	mux.HandleFunc("/v1/projects/{id}/calendar", h.calendar)
	mux.HandleFunc("/v1/projects/{id}/planning", h.planning)
	mux.HandleFunc("/v1/projects/{id}/calendar.ics", h.calendarExport)

	mux.HandleFunc("/v1/projects/{id}/pois", h.pois)
	mux.HandleFunc("/v1/projects/{id}/pois/{poiID}", h.poi)
	mux.HandleFunc("/v1/projects/{id}/pois/{poiID}/assign", h.assignPOI)
	mux.HandleFunc("/v1/projects/{id}/geocode", h.geocodeProject)

	mux.HandleFunc("/v1/geocode", h.searchPlaces)
	mux.HandleFunc("/v1/weather", h.forecast)
	mux.HandleFunc("/v1/end-time", endTime)
	mux.HandleFunc("/v1/categories", categories)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// principal resolves the caller and checks the scope needed for the request method.
func principal(w http.ResponseWriter, r *http.Request, write bool) (domain.Principal, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return domain.Principal{}, false
	}
	if write && !claims.CanWrite() {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+auth.ScopeProjectsWrite+" required")
		return domain.Principal{}, false
	}
	if !write && !claims.CanRead() {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+auth.ScopeProjectsRead+" required")
		return domain.Principal{}, false
	}
	return domain.Principal{UserID: claims.Subject, Email: claims.Email}, true
}

func isWrite(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func (h *Handler) projects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listProjects(w, r)
	case http.MethodPost:
		h.createProject(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, false)
	if !ok {
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	var bootstrapped bool
	if cursor == nil && r.URL.Query().Get("bootstrap") == "true" {
		claims, _ := auth.FromContext(r.Context())
		if !claims.CanWrite() {
			writeError(w, http.StatusForbidden, "forbidden", "scope "+auth.ScopeProjectsWrite+" required")
			return
		}
		if bootstrapped, err = h.service.EnsureDefaultProject(r.Context(), p); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}

	views, next, err := h.service.ListProjects(r.Context(), p, cursor, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := ListProjectsResponse{
		Items:      make([]ProjectView, 0, len(views)),
		NextCursor: persistence.EncodeCursor(next),
		Bootstrap:  bootstrapped,
	}
	for _, v := range views {
		resp.Items = append(resp.Items, toProjectView(v.Project, v.Access))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	var req ProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	project, err := h.service.CreateProject(r.Context(), p, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectView(*project, domain.AccessOwner))
}

func (h *Handler) project(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, isWrite(r.Method))
	if !ok {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		view, err := h.service.GetProject(r.Context(), p, id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toProjectView(view.Project, view.Access))
	case http.MethodPut:
		var req ProjectRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		project, err := h.service.UpdateProject(r.Context(), p, id, req.input())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		access := domain.AccessWrite
		if project.OwnerID == p.UserID {
			access = domain.AccessOwner
		}
		writeJSON(w, http.StatusOK, toProjectView(*project, access))
	case http.MethodDelete:
		if err := h.service.DeleteProject(r.Context(), p, id); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) duplicateProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	project, err := h.service.DuplicateProject(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectView(*project, domain.AccessOwner))
}

func (h *Handler) shares(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, isWrite(r.Method))
	if !ok {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		shares, err := h.service.ListShares(r.Context(), p, id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		items := make([]ShareView, 0, len(shares))
		for _, s := range shares {
			items = append(items, toShareView(s))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req ShareRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "email is required")
			return
		}
		share, err := h.service.ShareProject(r.Context(), p, id, req.Email, req.Permission)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toShareView(*share))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	if err := h.service.RemoveShare(r.Context(), p, r.PathValue("id"), r.PathValue("shareID")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
