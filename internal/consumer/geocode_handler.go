package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/tripplanner/internal/events"
)

// Geocoder resolves the location of a single activity or POI.
type Geocoder interface {
	GeocodeActivity(ctx context.Context, projectID, activityID string) error
	GeocodePOI(ctx context.Context, projectID, poiID string) error
}

// GeocodeHandler resolves coordinates for saved activities and POIs.
type GeocodeHandler struct {
	geocoder Geocoder
}

// NewGeocodeHandler constructs a GeocodeHandler.
func NewGeocodeHandler(geocoder Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

// Handle implements Handler. Unknown event types are ignored.
func (h *GeocodeHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeActivitySaved:
		var evt events.ActivitySaved
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return h.geocoder.GeocodeActivity(ctx, projectOf(msg, evt.ProjectID), evt.ActivityID)
	case events.TypePOISaved:
		var evt events.POISaved
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return h.geocoder.GeocodePOI(ctx, projectOf(msg, evt.ProjectID), evt.POIID)
	default:
		return nil
	}
}

func projectOf(msg Message, fromPayload string) string {
	if fromPayload != "" {
		return fromPayload
	}
	return msg.ProjectID
}

// Chain runs handlers in order and stops at the first error.
func Chain(handlers ...Handler) Handler {
	return HandlerFunc(func(ctx context.Context, msg Message) error {
		for _, h := range handlers {
			if err := h.Handle(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}
