package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	handledEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "consumer",
		Name:      "trip_events_handled_total",
		Help:      "Trip change events read from the broker, by event type and result.",
	}, []string{"event_type", "result"})

	unreadableRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "consumer",
		Name:      "unreadable_records_total",
		Help:      "Broker records skipped because their envelope could not be decoded.",
	})

	handledLag = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tripplanner",
		Subsystem: "consumer",
		Name:      "last_handled_event_timestamp_seconds",
		Help:      "Broker timestamp of the newest trip event handled and committed.",
	})
)

func init() {
	prometheus.MustRegister(handledEvents, unreadableRecords, handledLag)
}

func recordHandled(msg Message, err error) {
	if err != nil {
		handledEvents.WithLabelValues(msg.EventType, "error").Inc()
		return
	}
	handledEvents.WithLabelValues(msg.EventType, "ok").Inc()
	if !msg.Timestamp.IsZero() {
		handledLag.Set(float64(msg.Timestamp.Unix()))
	}
}
