package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "reward_queue",
		Name:      "requests_total",
		Help:      "Count of requests dispatched by reward queues, by outcome.",
	}, []string{"queue", "outcome"})
	queueRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "reward_queue",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests dispatched by reward queues.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"queue", "outcome"})
	queueHaltsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "reward_queue",
		Name:      "halts_total",
		Help:      "Count of reward queue halts, by reason.",
	}, []string{"queue", "reason"})
)

// Queue tracks metrics for one request queue.
type Queue struct {
	name string
}

// NewQueue creates metrics for the named queue.
func NewQueue(name string) *Queue {
	if name == "" {
		name = "unknown"
	}
	return &Queue{name: name}
}

// ObserveRequest records a dispatched request and how it was classified.
func (m Queue) ObserveRequest(outcome string, started time.Time) {
	queueRequestsTotal.WithLabelValues(m.name, outcome).Inc()
	queueRequestDuration.WithLabelValues(m.name, outcome).Observe(time.Since(started).Seconds())
}

// ObserveHalt records the queue entering its terminal state.
func (m Queue) ObserveHalt(reason string) {
	queueHaltsTotal.WithLabelValues(m.name, reason).Inc()
}
