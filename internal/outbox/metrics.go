package outbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "outbox",
		Name:      "trip_events_published_total",
		Help:      "Trip change events handed to the broker.",
	})

	unpublishedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "outbox",
		Name:      "trip_events_unpublished_total",
		Help:      "Trip change events the broker refused.",
	})

	deadLetteredEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "outbox",
		Name:      "trip_events_dead_lettered_total",
		Help:      "Trip change events parked in outbox_dlq, by event type.",
	}, []string{"event_type"})

	publishSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tripplanner",
		Subsystem: "outbox",
		Name:      "publish_pass_seconds",
		Help:      "Duration of one non-empty claim and publish pass.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})
)

func init() {
	prometheus.MustRegister(publishedEvents, unpublishedEvents, deadLetteredEvents, publishSeconds)
}

func observePublishPass(start time.Time, messages []Message, published bool) {
	publishSeconds.Observe(time.Since(start).Seconds())
	if published {
		publishedEvents.Add(float64(len(messages)))
		return
	}
	unpublishedEvents.Add(float64(len(messages)))
}

func recordDeadLettered(msg Message) {
	deadLetteredEvents.WithLabelValues(msg.EventType).Inc()
}
