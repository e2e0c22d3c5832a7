package outbox

import "example.com/tripplanner/internal/events"

const activitySavedSchema = `{
  "type": "object",
  "title": "ActivitySaved",
  "properties": {
    "activity_id": {"type": "string"},
    "project_id": {"type": "string"},
    "title": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "location": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "project_id", "date", "location", "occurred_at"],
  "additionalProperties": false
}`

const poiSavedSchema = `{
  "type": "object",
  "title": "POISaved",
  "properties": {
    "poi_id": {"type": "string"},
    "project_id": {"type": "string"},
    "name": {"type": "string"},
    "address": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["poi_id", "project_id", "address", "occurred_at"],
  "additionalProperties": false
}`

// schemaCatalog maps event type to its JSON schema.
var schemaCatalog = map[string]string{
	events.TypeActivitySaved: activitySavedSchema,
	events.TypePOISaved:      poiSavedSchema,
}
