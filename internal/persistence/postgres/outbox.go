package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/events"
)

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Event) string
}

func byProject(e domain.Event) string { return e.ProjectID }

var eventCatalog = map[string]EventMetadata{
	events.TypeActivitySaved: {
		Topic:          events.TopicTripEvents,
		SchemaSubject:  events.SubjectFor(events.TypeActivitySaved),
		PartitionKeyFn: byProject,
	},
	events.TypePOISaved: {
		Topic:          events.TopicTripEvents,
		SchemaSubject:  events.SubjectFor(events.TypePOISaved),
		PartitionKeyFn: byProject,
	},
}

func insertOutbox(ctx context.Context, tx pgx.Tx, evts []domain.Event) error {
	const stmt = `INSERT INTO outbox (project_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	for _, evt := range evts {
		meta, ok := eventCatalog[evt.Type]
		if !ok {
			return fmt.Errorf("unknown event type: %s", evt.Type)
		}
		body, err := json.Marshal(evt.Payload)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, stmt,
			evt.ProjectID,
			evt.AggregateType,
			evt.AggregateID,
			evt.Type,
			meta.Topic,
			meta.SchemaSubject,
			meta.PartitionKeyFn(evt),
			body,
		); err != nil {
			return err
		}
	}
	return nil
}
