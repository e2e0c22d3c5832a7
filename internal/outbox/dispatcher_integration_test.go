//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/tripplanner/internal/events"
	"example.com/tripplanner/internal/persistence/postgres"
)

func TestDispatcherPublishesMessagesWithHeaders(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	projectID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, projectID, uuid.NewString(), events.TypeActivitySaved))

	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	beforePublished := testutil.ToFloat64(publishedEvents)
	beforeHistogram := histogramSampleCount(t)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, events.TopicTripEvents, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)

	record := producer.writes[0].messages[0]
	require.Equal(t, projectID, string(record.Key))
	headers := map[string]string{}
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, events.TypeActivitySaved, headers[HeaderEventType])
	require.Equal(t, projectID, headers[HeaderProjectID])
	require.Equal(t, events.SubjectFor(events.TypeActivitySaved), headers[HeaderSchemaSubject])

	id, _, err := DecodeWireFormat(record.Value)
	require.NoError(t, err)
	require.Equal(t, 42, id)

	require.InDelta(t, beforePublished+1, testutil.ToFloat64(publishedEvents), 0.0001)
	require.Greater(t, histogramSampleCount(t), beforeHistogram)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherRoutesMessagesToDLQOnFailure(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	projectID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, projectID, uuid.NewString(), events.TypePOISaved))

	producer := &stubProducer{err: errors.New("kafka write failed")}
	dispatcher := NewDispatcher(pool, producer, &stubRegistry{id: 7}, 10*time.Millisecond, 5)

	beforeUnpublished := testutil.ToFloat64(unpublishedEvents)
	beforeParked := testutil.ToFloat64(deadLetteredEvents.WithLabelValues(events.TypePOISaved))

	require.NoError(t, dispatcher.processBatch(ctx))

	require.InDelta(t, beforeUnpublished+1, testutil.ToFloat64(unpublishedEvents), 0.0001)
	require.InDelta(t, beforeParked+1, testutil.ToFloat64(deadLetteredEvents.WithLabelValues(events.TypePOISaved)), 0.0001)

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE project_id = $1`, projectID).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount)
}

func TestDispatcherCachesSchemaIDsAcrossBatch(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	projectID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, projectID, uuid.NewString(), events.TypeActivitySaved))
	require.NotZero(t, seedOutbox(t, ctx, pool, projectID, uuid.NewString(), events.TypeActivitySaved))

	producer := &stubProducer{}
	registry := &stubRegistry{id: 21}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Len(t, producer.writes[0].messages, 2)
	require.Len(t, registry.calls, 1, "schema registry should be invoked once due to cache")
}

func TestDispatcherUnknownSchemaMovesEventsToDLQ(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	eventID := seedOutbox(t, ctx, pool, uuid.NewString(), uuid.NewString(), "activity.unknown")
	producer := &stubProducer{}
	registry := &stubRegistry{id: 99}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq WHERE event_id = $1`, eventID).Scan(&reason))
	require.Contains(t, reason, "no schema metadata for event_type=activity.unknown")
}

func TestDLQManagerRequeuesThenQuarantines(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	require.NotZero(t, seedOutbox(t, ctx, pool, uuid.NewString(), uuid.NewString(), events.TypeActivitySaved))
	failing := NewDispatcher(pool, &stubProducer{err: errors.New("broker down")}, &stubRegistry{id: 1}, time.Millisecond, 10)
	require.NoError(t, failing.processBatch(ctx))

	manager := NewDLQManager(pool, 1, time.Second)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Equal(t, 1, pending, "requeued event should be waiting for the dispatcher")

	producer := &stubProducer{}
	require.NoError(t, NewDispatcher(pool, producer, &stubRegistry{id: 1}, time.Millisecond, 10).processBatch(ctx))
	require.Len(t, producer.writes, 1)

	_, err = pool.Exec(ctx, `INSERT INTO outbox_dlq (project_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count)
        VALUES ($1, 99, $2, $3, '{}', 'old failure', 'activity', 'a1', $4, 'k', 5)`,
		uuid.NewString(), events.TypeActivitySaved, events.TopicTripEvents, events.SubjectFor(events.TypeActivitySaved))
	require.NoError(t, err)

	replayed, err = manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Zero(t, replayed)

	var quarantined int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NOT NULL`).Scan(&quarantined))
	require.Equal(t, 1, quarantined)
	require.Zero(t, testutil.ToFloat64(deadLetterBacklog))
}

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	calls []string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, subject)
	return s.id, nil
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("tripplanner"),
		postgrescontainer.WithUsername("planner"),
		postgrescontainer.WithPassword("planner"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := postgres.NewMigrator(connStr)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, publishSeconds.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}

func seedOutbox(t *testing.T, ctx context.Context, pool *pgxpool.Pool, projectID, aggregateID, eventType string) int64 {
	t.Helper()

	payload, err := json.Marshal(events.ActivitySaved{
		ActivityID: aggregateID,
		ProjectID:  projectID,
		Date:       "2024-07-10",
		Location:   "Kyoto",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	var eventID int64
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO outbox (project_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         RETURNING event_id`,
		projectID, "activity", aggregateID, eventType, events.TopicTripEvents, events.SubjectFor(eventType), projectID, payload,
	).Scan(&eventID))
	return eventID
}
