package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/events"
)

type recordingGeocoder struct {
	activities []string
	pois       []string
	err        error
}

func (g *recordingGeocoder) GeocodeActivity(_ context.Context, projectID, activityID string) error {
	g.activities = append(g.activities, projectID+"/"+activityID)
	return g.err
}

func (g *recordingGeocoder) GeocodePOI(_ context.Context, projectID, poiID string) error {
	g.pois = append(g.pois, projectID+"/"+poiID)
	return g.err
}

func TestGeocodeHandlerDispatchesOnEventType(t *testing.T) {
	geocoder := &recordingGeocoder{}
	h := NewGeocodeHandler(geocoder)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, Message{EventType: events.TypeActivitySaved, Payload: []byte(`{"activity_id":"a1","project_id":"p1"}`)}))
	require.NoError(t, h.Handle(ctx, Message{EventType: events.TypePOISaved, ProjectID: "p2", Payload: []byte(`{"poi_id":"x1"}`)}))
	require.NoError(t, h.Handle(ctx, Message{EventType: "project.deleted", Payload: []byte(`{}`)}))

	require.Equal(t, []string{"p1/a1"}, geocoder.activities)
	require.Equal(t, []string{"p2/x1"}, geocoder.pois)
}

func TestGeocodeHandlerReportsBadPayload(t *testing.T) {
	h := NewGeocodeHandler(&recordingGeocoder{})
	err := h.Handle(context.Background(), Message{EventType: events.TypeActivitySaved, Payload: []byte(`[]`)})
	require.ErrorContains(t, err, "decode activity.saved")
}

func TestChainStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	second := &stubHandler{}
	chain := Chain(NewGeocodeHandler(&recordingGeocoder{err: boom}), second)

	err := chain.Handle(context.Background(), Message{EventType: events.TypePOISaved, Payload: []byte(`{"poi_id":"x"}`)})
	require.ErrorIs(t, err, boom)
	require.Zero(t, second.calls)
}
