package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpHandlerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "http_handler",
		Name:      "requests_total",
		Help:      "Count of served API requests.",
	}, []string{"route", "code"})
	httpHandlerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "http_handler",
		Name:      "request_duration_seconds",
		Help:      "Duration of served API requests.",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"route", "code"})
)

// HTTPHandler tracks metrics for the rewards API.
type HTTPHandler struct{}

// NewHTTPHandler creates an HTTPHandler metrics collector.
func NewHTTPHandler() *HTTPHandler {
	return &HTTPHandler{}
}

// Observe records a served request.
func (m HTTPHandler) Observe(route string, statusCode int, started time.Time) {
	code := strconv.Itoa(statusCode)
	httpHandlerRequestsTotal.WithLabelValues(route, code).Inc()
	httpHandlerRequestDuration.WithLabelValues(route, code).Observe(time.Since(started).Seconds())
}
