package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	BusRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomchat_bus_duration_seconds",
			Help:    "Command and query handling duration",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"kind", "key", "outcome"},
	)

	SummariesBuilt = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roomchat_conversation_summaries_built",
			Help:    "Summaries returned per chat list request",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	ReferencesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_conversation_references_skipped_total",
			Help: "Room members or message authors that could not be resolved",
		},
		[]string{"reason"},
	)

	MessagesPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_messages_posted_total",
			Help: "Total messages posted",
		},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_auth_attempts_total",
			Help: "Register and login attempts",
		},
		[]string{"action", "outcome"},
	)

	OutboxRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_outbox_relayed_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"event", "outcome"},
	)
)

// ObserveBus matches the bus logging middleware observer signature.
func ObserveBus(kind, key string, elapsed time.Duration, err error) {
	BusRequestDuration.WithLabelValues(kind, key, outcome(err)).Observe(elapsed.Seconds())
}

// ObserveSkip counts an unresolved reference reported by the summary builder.
func ObserveSkip(reason string) {
	ReferencesSkipped.WithLabelValues(reason).Inc()
}

func ObserveSummaries(n int) {
	SummariesBuilt.Observe(float64(n))
}

func ObserveMessagePosted() {
	MessagesPosted.Inc()
}

func ObserveAuth(action string, err error) {
	AuthAttempts.WithLabelValues(action, outcome(err)).Inc()
}

func ObserveRelay(event string, err error) {
	OutboxRelayed.WithLabelValues(event, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
