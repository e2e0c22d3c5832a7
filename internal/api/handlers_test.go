package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/attachments"
	"example.com/tripplanner/internal/auth"
	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/geo"
	"example.com/tripplanner/internal/persistence/memory"
	"example.com/tripplanner/internal/planner"
)

var (
	owner  = &auth.Claims{Subject: "owner-1", Email: "owner@example.com", Scopes: map[string]struct{}{auth.ScopeProjectsWrite: {}}}
	guest  = &auth.Claims{Subject: "guest-1", Email: "guest@example.com", Scopes: map[string]struct{}{auth.ScopeProjectsWrite: {}}}
	reader = &auth.Claims{Subject: "owner-1", Email: "owner@example.com", Scopes: map[string]struct{}{auth.ScopeProjectsRead: {}}}
)

type testServer struct {
	mux   *http.ServeMux
	store *stubStore
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	store := &stubStore{objects: map[string][]byte{}}
	now := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	service := domain.NewService(memory.NewRepository(),
		domain.WithClock(func() time.Time { return now }),
		domain.WithLocation(time.UTC),
		domain.WithObjectStore(store),
	)
	mux := http.NewServeMux()
	NewHandler(service, opts...).RegisterRoutes(mux)
	return &testServer{mux: mux, store: store}
}

func (s *testServer) do(t *testing.T, claims *auth.Claims, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func requireErrorType(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	body := decode[map[string]string](t, rr)
	require.Equal(t, code, body["type"])
}

func (s *testServer) createProject(t *testing.T, name string) ProjectView {
	t.Helper()
	rr := s.do(t, owner, http.MethodPost, "/v1/projects", ProjectRequest{Name: name, Travelers: []string{"Ana"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[ProjectView](t, rr)
}

func TestProjectLifecycleAndSharing(t *testing.T) {
	srv := newTestServer(t)
	project := srv.createProject(t, "Japan")
	require.Equal(t, "owner", project.Access)

	list := decode[ListProjectsResponse](t, srv.do(t, owner, http.MethodGet, "/v1/projects", nil))
	require.Len(t, list.Items, 1)

	rr := srv.do(t, guest, http.MethodGet, "/v1/projects/"+project.ID, nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")

	rr = srv.do(t, owner, http.MethodPost, "/v1/projects/"+project.ID+"/shares", ShareRequest{Email: "Guest@Example.com", Permission: domain.PermissionRead})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	share := decode[ShareView](t, rr)
	require.Equal(t, "guest@example.com", share.Email)

	rr = srv.do(t, owner, http.MethodPost, "/v1/projects/"+project.ID+"/shares", ShareRequest{Email: "guest@example.com"})
	requireErrorType(t, rr, http.StatusConflict, "conflict")

	rr = srv.do(t, guest, http.MethodGet, "/v1/projects/"+project.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "read", decode[ProjectView](t, rr).Access)

	rr = srv.do(t, guest, http.MethodPut, "/v1/projects/"+project.ID, ProjectRequest{Name: "Hijacked"})
	requireErrorType(t, rr, http.StatusForbidden, "forbidden")

	rr = srv.do(t, owner, http.MethodPost, "/v1/projects/"+project.ID+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "Japan (copy)", decode[ProjectView](t, rr).Name)

	rr = srv.do(t, owner, http.MethodDelete, "/v1/projects/"+project.ID+"/shares/"+share.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = srv.do(t, guest, http.MethodGet, "/v1/projects/"+project.ID, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = srv.do(t, owner, http.MethodDelete, "/v1/projects/"+project.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestListProjectsBootstrapAndPagination(t *testing.T) {
	srv := newTestServer(t)

	list := decode[ListProjectsResponse](t, srv.do(t, owner, http.MethodGet, "/v1/projects?bootstrap=true", nil))
	require.True(t, list.Bootstrap)
	require.Len(t, list.Items, 1)
	require.Equal(t, "My first trip", list.Items[0].Name)

	srv.createProject(t, "Second")
	srv.createProject(t, "Third")

	page := decode[ListProjectsResponse](t, srv.do(t, owner, http.MethodGet, "/v1/projects?limit=2", nil))
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest := decode[ListProjectsResponse](t, srv.do(t, owner, http.MethodGet, "/v1/projects?limit=2&cursor="+page.NextCursor, nil))
	require.Len(t, rest.Items, 1)

	rr := srv.do(t, owner, http.MethodGet, "/v1/projects?cursor=@@@@", nil)
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")
}

func TestActivityCalendarAndPlanning(t *testing.T) {
	srv := newTestServer(t)
	project := srv.createProject(t, "Japan")
	base := "/v1/projects/" + project.ID

	hours := 1.5
	rr := srv.do(t, owner, http.MethodPost, base+"/activities", ActivityRequest{
		Title: "Fushimi Inari", Date: "2024-07-10", Time: "09:00", Duration: &hours, Category: domain.CategoryActivity,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[map[string]any](t, rr)
	require.Equal(t, "10:30", created["end_time"])
	require.Equal(t, "2024-07-10", created["date"])

	rr = srv.do(t, owner, http.MethodPost, base+"/activities", ActivityRequest{Title: "Arrival", Date: "2024-07-10"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = srv.do(t, owner, http.MethodGet, base+"/calendar?year=2024&month=7&selected=2024-07-10", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cal := decode[struct {
		Grid struct {
			Cells []struct {
				Date      string `json:"date"`
				HasEvents bool   `json:"has_events"`
			} `json:"cells"`
		} `json:"grid"`
		SelectedActivities []struct {
			Title string `json:"title"`
		} `json:"selected_activities"`
	}](t, rr)
	require.Len(t, cal.Grid.Cells, 42)
	require.Len(t, cal.SelectedActivities, 2)
	require.Equal(t, "Arrival", cal.SelectedActivities[0].Title, "untimed activities sort first")

	rr = srv.do(t, owner, http.MethodGet, base+"/planning?year=2024", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	plan := decode[PlanningResponse](t, rr)
	require.NotNil(t, plan.ScrollTo)
	require.Equal(t, "2024-07-08", plan.ScrollTo.String())
	require.Equal(t, "2024-01-01", plan.Weeks[0].Start.String())

	rr = srv.do(t, owner, http.MethodGet, base+"/calendar?year=2024&month=13", nil)
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")

	rr = srv.do(t, owner, http.MethodPost, base+"/activities", ActivityRequest{Title: "Bad", Date: "2024-02-30"})
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")

	rr = srv.do(t, owner, http.MethodGet, base+"/calendar.ics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/calendar; charset=utf-8", rr.Header().Get("Content-Type"))
	require.Equal(t, 2, strings.Count(rr.Body.String(), "BEGIN:VEVENT"))
}

func TestAnnotationsDeleteOnEmpty(t *testing.T) {
	srv := newTestServer(t)
	project := srv.createProject(t, "Lisbon")
	base := "/v1/projects/" + project.ID + "/annotations"

	rr := srv.do(t, owner, http.MethodPut, base+"/2024-05-02", AnnotationRequest{Label: " Alfama ", Location: "Lisbon"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	all := decode[map[string]map[string]string](t, srv.do(t, owner, http.MethodGet, base, nil))
	require.Equal(t, "Alfama", all["2024-05-02"]["label"])

	rr = srv.do(t, owner, http.MethodPut, base+"/2024-05-02", AnnotationRequest{})
	require.Equal(t, http.StatusNoContent, rr.Code)
	all = decode[map[string]map[string]string](t, srv.do(t, owner, http.MethodGet, base, nil))
	require.Empty(t, all)

	rr = srv.do(t, owner, http.MethodPut, base+"/2024-5-2", AnnotationRequest{Label: "x"})
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")
}

func TestPOIsGroupedAndAssigned(t *testing.T) {
	srv := newTestServer(t)
	project := srv.createProject(t, "Rome")
	base := "/v1/projects/" + project.ID + "/pois"

	rr := srv.do(t, owner, http.MethodPost, base, POIRequest{Name: "Colosseum", Address: "Piazza del Colosseo", Category: domain.POISight, Priority: domain.PriorityMustSee})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	poi := decode[POIView](t, rr)

	rr = srv.do(t, owner, http.MethodPost, base+"/"+poi.ID+"/assign", AssignRequest{Date: "2024-09-03", Time: "10:00"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	groups := decode[POIListResponse](t, srv.do(t, owner, http.MethodGet, base, nil))
	require.Empty(t, groups.Unassigned)
	require.Len(t, groups.Assigned, 1)
	require.Equal(t, "2024-09-03", groups.Assigned[0].AssignedDate.String())

	rr = srv.do(t, owner, http.MethodPost, base, POIRequest{Name: "Nameless"})
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")
}

func TestAuthorizationAndMethodErrors(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, nil, http.MethodGet, "/v1/projects", nil)
	requireErrorType(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = srv.do(t, reader, http.MethodPost, "/v1/projects", ProjectRequest{Name: "x"})
	requireErrorType(t, rr, http.StatusForbidden, "forbidden")

	rr = srv.do(t, owner, http.MethodPatch, "/v1/projects", nil)
	requireErrorType(t, rr, http.StatusMethodNotAllowed, "method_not_allowed")

	rr = srv.do(t, owner, http.MethodGet, "/v1/projects/7b0f5c4e-0000-4000-8000-000000000000", nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")

	req := httptest.NewRequest(http.MethodPost, "/v1/projects", strings.NewReader("{"))
	req = req.WithContext(auth.WithClaims(req.Context(), owner))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	requireErrorType(t, rec, http.StatusBadRequest, "invalid_request")
}

func TestEndTime(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, owner, http.MethodGet, "/v1/end-time?time=23:00&duration=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "01:00", decode[map[string]string](t, rr)["end_time"])

	rr = srv.do(t, owner, http.MethodGet, "/v1/end-time?time=09:00&duration=-1", nil)
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")
}

func TestAttachmentUpload(t *testing.T) {
	srv := newTestServer(t)
	project := srv.createProject(t, "Japan")
	base := "/v1/projects/" + project.ID
	rr := srv.do(t, owner, http.MethodPost, base+"/activities", ActivityRequest{Title: "Flight", Date: "2024-07-09"})
	require.Equal(t, http.StatusCreated, rr.Code)
	activity := decode[map[string]any](t, rr)
	path := base + "/activities/" + activity["id"].(string) + "/attachments"

	upload := func(name string, content []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, path, &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req = req.WithContext(auth.WithClaims(req.Context(), owner))
		rec := httptest.NewRecorder()
		srv.mux.ServeHTTP(rec, req)
		return rec
	}

	rr = upload("ticket.pdf", []byte("%PDF-1.7\n1 0 obj\n<< >>\nendobj\n"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	att := decode[AttachmentView](t, rr)
	require.Equal(t, "application/pdf", att.ContentType)
	require.Len(t, srv.store.objects, 1)

	rr = upload("notes.pdf", []byte("plain text pretending"))
	requireErrorType(t, rr, http.StatusBadRequest, "validation_failed")

	list := decode[map[string][]AttachmentView](t, srv.do(t, owner, http.MethodGet, path, nil))
	require.Len(t, list["items"], 1)
	require.True(t, strings.HasPrefix(list["items"][0].URL, "https://files.test/"))

	rr = srv.do(t, owner, http.MethodDelete, path+"/"+att.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Empty(t, srv.store.objects)
}

func TestAttachmentUploadTooLarge(t *testing.T) {
	policy := attachments.DefaultPolicy()
	policy.MaxBytes = 16
	srv := newTestServer(t, WithUploadPolicy(policy))
	project := srv.createProject(t, "Japan")
	base := "/v1/projects/" + project.ID
	rr := srv.do(t, owner, http.MethodPost, base+"/activities", ActivityRequest{Title: "Flight", Date: "2024-07-09"})
	activity := decode[map[string]any](t, rr)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "big.pdf")
	require.NoError(t, err)
	_, err = part.Write(append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, base+"/activities/"+activity["id"].(string)+"/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(auth.WithClaims(req.Context(), owner))
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	requireErrorType(t, rec, http.StatusRequestEntityTooLarge, "validation_failed")
}

func TestGeocodeAndWeatherCollaborators(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, owner, http.MethodGet, "/v1/geocode?q=Kyoto", nil)
	requireErrorType(t, rr, http.StatusServiceUnavailable, "server_error")
	rr = srv.do(t, owner, http.MethodGet, "/v1/weather?location=Kyoto&date=2024-06-02", nil)
	requireErrorType(t, rr, http.StatusServiceUnavailable, "server_error")

	srv = newTestServer(t,
		WithPlaceSearcher(stubPlaces{{Lat: 35.0, Lng: 135.7, DisplayName: "Kyoto, Japan"}}),
		WithForecaster(stubWeather{err: geo.ErrOutOfRange}),
	)
	rr = srv.do(t, owner, http.MethodGet, "/v1/geocode?q=Kyoto&limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	places := decode[map[string][]geo.Place](t, rr)
	require.Equal(t, "Kyoto, Japan", places["items"][0].DisplayName)

	rr = srv.do(t, owner, http.MethodGet, "/v1/weather?location=Kyoto&date=2024-09-01", nil)
	requireErrorType(t, rr, http.StatusNotFound, "not_found")
}

type stubStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *stubStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *stubStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *stubStore) URL(ctx context.Context, key, filename string) (string, error) {
	return "https://files.test/" + key, nil
}

type stubPlaces []geo.Place

func (s stubPlaces) Search(ctx context.Context, query string, limit int) ([]geo.Place, error) {
	return s[:min(limit, len(s))], nil
}

type stubWeather struct {
	weather geo.Weather
	err     error
}

func (s stubWeather) Forecast(ctx context.Context, location string, day planner.Date) (geo.Weather, error) {
	return s.weather, s.err
}
