package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpClientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "http_client",
		Name:      "requests_total",
		Help:      "Count of outbound HTTP requests.",
	}, []string{"host", "code", "status"})
	httpClientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "http_client",
		Name:      "request_duration_seconds",
		Help:      "Duration of outbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"host", "code", "status"})
)

// HTTPClient tracks metrics for outbound HTTP requests.
type HTTPClient struct{}

// NewHTTPClient creates an HTTPClient metrics collector.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{}
}

// Observe records a single request. A zero status code means no answer was received.
func (m HTTPClient) Observe(host string, statusCode int, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	code := "none"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}

	httpClientRequestsTotal.WithLabelValues(host, code, status).Inc()
	httpClientRequestDuration.WithLabelValues(host, code, status).Observe(time.Since(started).Seconds())
}
