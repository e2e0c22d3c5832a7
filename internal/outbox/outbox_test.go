package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/events"
)

func TestWireFormatRoundTrip(t *testing.T) {
	payload := []byte(`{"activity_id":"a1"}`)
	frame := encodeWireFormat(42, payload)
	require.Equal(t, byte(0), frame[0])

	id, body, err := DecodeWireFormat(frame)
	require.NoError(t, err)
	require.Equal(t, 42, id)
	require.JSONEq(t, string(payload), string(body))

	_, _, err = DecodeWireFormat([]byte{1, 0, 0})
	require.Error(t, err)
}

func TestBackoffDelayDoublesUpToAnHour(t *testing.T) {
	m := NewDLQManager(nil, 3, time.Minute)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 2*time.Minute, m.backoffDelay(2))
	require.Equal(t, 8*time.Minute, m.backoffDelay(4))
	require.Equal(t, time.Hour, m.backoffDelay(10))
	require.Equal(t, time.Hour, m.backoffDelay(64))
}

func TestSchemaCatalogCoversEveryEventType(t *testing.T) {
	for _, eventType := range []string{events.TypeActivitySaved, events.TypePOISaved} {
		schema, ok := schemaCatalog[eventType]
		require.True(t, ok, eventType)
		require.True(t, json.Valid([]byte(schema)), eventType)
	}
}

func TestSchemaRegistryRegistersUnknownSchema(t *testing.T) {
	var registered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		switch r.URL.Path {
		case "/subjects/trip_events-activity.saved":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":40403,"message":"Schema not found"}`))
		case "/subjects/trip_events-activity.saved/versions":
			registered.Add(1)
			_, _ = w.Write([]byte(`{"id":7}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	id, err := client.EnsureSchema(context.Background(), events.SubjectFor(events.TypeActivitySaved), activitySavedSchema)
	require.NoError(t, err)
	require.Equal(t, 7, id)
	require.EqualValues(t, 1, registered.Load())
}

func TestSchemaRegistryReusesKnownSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subjects/trip_events-poi.saved", r.URL.Path)
		_, _ = w.Write([]byte(`{"subject":"trip_events-poi.saved","id":3,"version":1}`))
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), events.SubjectFor(events.TypePOISaved), poiSavedSchema)
	require.NoError(t, err)
	require.Equal(t, 3, id)
}

func TestSchemaRegistrySurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "s", "{}")
	require.ErrorContains(t, err, "502")
}
