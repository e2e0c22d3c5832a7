package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/tripplanner/internal/calendarexport"
	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/geo"
	"example.com/tripplanner/internal/planner"
)

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, false)
	if !ok {
		return
	}
	today := h.service.Today()
	year, err := queryInt(r, "year", today.Year)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	month, err := queryInt(r, "month", int(today.Month))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	var selected *planner.Date
	if raw := strings.TrimSpace(r.URL.Query().Get("selected")); raw != "" {
		d, err := planner.ParseDate(raw)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		selected = &d
	}

	view, err := h.service.MonthCalendar(r.Context(), p, r.PathValue("id"), year, time.Month(month), selected)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{
		Grid:               view.Grid,
		Today:              view.Today,
		Selected:           view.Selected,
		SelectedActivities: toActivityViews(view.SelectedActivities),
	})
}

func (h *Handler) planning(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, false)
	if !ok {
		return
	}
	year, err := queryInt(r, "year", h.service.Today().Year)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	view, err := h.service.YearPlanning(r.Context(), p, r.PathValue("id"), year)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	resp := PlanningResponse{Year: view.Year, Today: view.Today, Weeks: make([]PlanningWeek, 0, len(view.Weeks))}
	for _, week := range view.Weeks {
		resp.Weeks = append(resp.Weeks, toPlanningWeek(week))
	}
	if view.ScrollTo != nil {
		start := view.ScrollTo.Start
		resp.ScrollTo = &start
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) calendarExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, false)
	if !ok {
		return
	}
	projectID := r.PathValue("id")
	project, err := h.service.GetProject(r.Context(), p, projectID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	activities, err := h.service.ListActivities(r.Context(), p, projectID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := calendarexport.Encode(&buf, project.Project, activities, h.loc); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.SanitizeFilename(project.Name)+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) pois(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, isWrite(r.Method))
	if !ok {
		return
	}
	projectID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		groups, err := h.service.ListPOIs(r.Context(), p, projectID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, POIListResponse{
			Unassigned: toPOIViews(groups.Unassigned),
			Assigned:   toPOIViews(groups.Assigned),
		})
	case http.MethodPost:
		var req POIRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		poi, err := h.service.CreatePOI(r.Context(), p, projectID, req.input())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPOIView(*poi))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) poi(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	projectID, poiID := r.PathValue("id"), r.PathValue("poiID")

	switch r.Method {
	case http.MethodPut:
		var req POIRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		poi, err := h.service.UpdatePOI(r.Context(), p, projectID, poiID, req.input())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPOIView(*poi))
	case http.MethodDelete:
		if err := h.service.DeletePOI(r.Context(), p, projectID, poiID); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) assignPOI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	var req AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	poi, err := h.service.AssignPOI(r.Context(), p, r.PathValue("id"), r.PathValue("poiID"), req.Date, req.Time)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPOIView(*poi))
}

func (h *Handler) geocodeProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	report, err := h.service.GeocodeProject(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GeocodeReportView{Geocoded: report.Geocoded, Failed: report.Failed})
}

func (h *Handler) searchPlaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := principal(w, r, false); !ok {
		return
	}
	if h.places == nil {
		h.writeServiceError(w, r, domain.ErrGeocoderUnavailable)
		return
	}
	limit, err := queryInt(r, "limit", 5)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	places, err := h.places.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if places == nil {
		places = []geo.Place{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": places})
}

func (h *Handler) forecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := principal(w, r, false); !ok {
		return
	}
	if h.weather == nil {
		h.writeServiceError(w, r, geo.ErrWeatherUnavailable)
		return
	}
	day, err := planner.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	weather, err := h.weather.Forecast(r.Context(), r.URL.Query().Get("location"), day)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weather)
}

func endTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("duration")), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "duration must be a number of hours")
		return
	}
	end, err := planner.ComputeEndTime(strings.TrimSpace(r.URL.Query().Get("time")), hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"end_time": end})
}

func categories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": domain.Categories()})
}
