package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeNoop    = "noop"
)

var (
	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderboard_notifications_total",
			Help: "Notification deliveries per channel",
		},
		[]string{"channel", "type", "outcome"},
	)

	batchesFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderboard_batches_flushed_total",
			Help: "Debounced batches handed to the dispatcher",
		},
		[]string{"kind"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"method", "path"},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderboard_transitions_total",
			Help: "Order lifecycle transitions by outcome",
		},
		[]string{"transition", "outcome"},
	)
)

// Notification counts a channel delivery attempt.
func Notification(channel, kind, outcome string) {
	notifications.WithLabelValues(channel, kind, outcome).Inc()
}

// BatchFlushed counts a flushed batch of the given kind.
func BatchFlushed(kind string) {
	batchesFlushed.WithLabelValues(kind).Inc()
}

// Transition counts a lifecycle transition attempt.
func Transition(name, outcome string) {
	transitions.WithLabelValues(name, outcome).Inc()
}

// HTTPRequest records a served request. path is the route template.
func HTTPRequest(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(float64(elapsed) / float64(time.Millisecond))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
