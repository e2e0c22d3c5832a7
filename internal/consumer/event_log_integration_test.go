//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/tripplanner/internal/events"
	"example.com/tripplanner/internal/persistence/postgres"
)

func TestEventLogHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	handler := NewEventLogHandler(pool)

	payload := json.RawMessage(`{"activity_id":"abc"}`)
	msg := Message{
		EventType:     events.TypeActivitySaved,
		ProjectID:     uuid.NewString(),
		SchemaID:      42,
		SchemaSubject: events.SubjectFor(events.TypeActivitySaved),
		Topic:         events.TopicTripEvents,
		Offset:        5,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg), "redelivery must be ignored")

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM trip_event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var stored []byte
	require.NoError(t, pool.QueryRow(ctx, `SELECT payload FROM trip_event_log LIMIT 1`).Scan(&stored))
	require.JSONEq(t, string(payload), string(stored))
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
