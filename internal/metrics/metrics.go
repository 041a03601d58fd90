// Package metrics exposes the broadcast service's Prometheus gauges and
// counters against a private registry (never the global default), so
// GET /metrics exposition is explicit about exactly what this service
// publishes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Listeners = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "broadcast",
		Name:      "listeners",
		Help:      "Number of attached stream listeners.",
	})

	QueueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "broadcast",
		Name:      "queue_length",
		Help:      "Number of tracks waiting in the queue.",
	})

	Paused = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "broadcast",
		Name:      "paused",
		Help:      "1 if the broadcast is currently paused, 0 otherwise.",
	})

	TracksPlayedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "broadcast",
		Name:      "tracks_played_total",
		Help:      "Total number of tracks that started playing.",
	})

	TrackFetchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broadcast",
		Name:      "track_fetch_failures_total",
		Help:      "Total number of track fetch/encode-start failures by source.",
	}, []string{"source"})

	EncoderRestartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "broadcast",
		Name:      "encoder_restarts_total",
		Help:      "Total number of encoder pipelines killed due to the safety timeout.",
	})
)

// Registry builds a private prometheus.Registry with every metric above
// registered, for use with promhttp.HandlerFor.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		Listeners,
		QueueLength,
		Paused,
		TracksPlayedTotal,
		TrackFetchFailuresTotal,
		EncoderRestartsTotal,
	)
	return reg
}
