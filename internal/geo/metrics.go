package geo

import "github.com/prometheus/client_golang/prometheus"

var (
	geocodeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "geocoder",
		Name:      "requests_total",
		Help:      "Geocoding requests by outcome (ok, no_match, error).",
	}, []string{"outcome"})

	weatherCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripplanner",
		Subsystem: "weather",
		Name:      "cache_lookups_total",
		Help:      "Weather cache lookups by result (hit, miss).",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(geocodeRequests, weatherCacheLookups)
}
