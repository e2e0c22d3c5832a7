package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/domain"
)

func TestSearchSendsPolicyHeadersAndParsesCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Header.Get("User-Agent") != "TripTest/1.0" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("addressdetails") != "1" || q.Get("limit") != "2" || q.Get("q") != "Kyoto Station" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[
			{"lat":"34.9858","lon":"135.7588","display_name":"Kyoto Station, Kyoto","type":"station","importance":0.6},
			{"lat":"bad","lon":"135.0","display_name":"broken"}
		]`))
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "TripTest/1.0", 0)
	places, err := g.Search(context.Background(), "  Kyoto Station ", 2)
	require.NoError(t, err)
	require.Len(t, places, 1)
	require.InDelta(t, 34.9858, places[0].Lat, 1e-9)
	require.InDelta(t, 135.7588, places[0].Lng, 1e-9)
	require.Equal(t, "station", places[0].Type)
}

func TestLocateReportsNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewGeocoder(srv.URL, "", 0).Locate(context.Background(), "Atlantis")
	require.ErrorIs(t, err, domain.ErrNoMatch)
}

func TestSearchRejectsEmptyQueryAndServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL, "", 0)
	_, err := g.Search(context.Background(), "   ", 1)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = g.Search(context.Background(), "Paris", 1)
	require.ErrorContains(t, err, "429")
}

func TestSearchHonoursCancelledContext(t *testing.T) {
	g := NewGeocoder("http://127.0.0.1:1", "", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Search(ctx, "Paris", 1)
	require.Error(t, err)
}
