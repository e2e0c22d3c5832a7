package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a dead-letter replay attempt.
const (
	replayExamined    = "examined"
	replayRequeued    = "requeued"
	replayPostponed   = "postponed"
	replayQuarantined = "quarantined"
)

var (
	deadLetterReplays = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "dlq",
		Name:      "replays_total",
		Help:      "Dead-lettered trip events handled by the replay manager, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	deadLetterBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripplanner",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "Dead-lettered trip events still waiting for replay.",
	})
)

func init() {
	prometheus.MustRegister(deadLetterReplays, deadLetterBacklog)
}

func recordReplay(entry dlqEntry, outcome string) {
	deadLetterReplays.WithLabelValues(entry.EventType, outcome).Inc()
}

// refreshBacklog leaves the gauge untouched when the count cannot be read.
func refreshBacklog(ctx context.Context, pool *pgxpool.Pool) {
	var waiting int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&waiting); err != nil {
		return
	}
	deadLetterBacklog.Set(float64(waiting))
}
