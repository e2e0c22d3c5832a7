// Package events defines the payloads published on the trip event stream.
package events

import "time"

// TopicTripEvents is the Kafka topic carrying every trip event.
const TopicTripEvents = "trip_events"

// SubjectFor names the schema registry subject of an event type. Each type gets its own
// subject because several types share the trip topic.
func SubjectFor(eventType string) string {
	return TopicTripEvents + "-" + eventType
}

// Event types carried in the event_type header.
const (
	TypeActivitySaved = "activity.saved"
	TypePOISaved      = "poi.saved"
)

// ActivitySaved is emitted when an activity with an ungeocoded location is created or updated.
type ActivitySaved struct {
	ActivityID string    `json:"activity_id"`
	ProjectID  string    `json:"project_id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	Location   string    `json:"location"`
	OccurredAt time.Time `json:"occurred_at"`
}

// POISaved is emitted when a point of interest with an ungeocoded address is created or updated.
type POISaved struct {
	POIID      string    `json:"poi_id"`
	ProjectID  string    `json:"project_id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	OccurredAt time.Time `json:"occurred_at"`
}
