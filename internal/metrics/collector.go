package metrics

import (
	"time"

	"github.com/goodnatureofminers/blockinsight7000-rewards/internal/reward/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	collectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "reward_collector",
		Name:      "collect_total",
		Help:      "Count of reward collections.",
	}, []string{"source", "status"})
	collectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "reward_collector",
		Name:      "collect_duration_seconds",
		Help:      "Duration of reward collections.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"source", "status"})
	collectRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "reward_collector",
		Name:      "collect_rows",
		Help:      "Number of rows produced per successful collection.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1..262144
	}, []string{"source"})
)

// Collector tracks metrics for reward collections.
type Collector struct{}

// NewCollector creates a Collector metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// ObserveCollect records the outcome, duration and size of a collection.
func (m Collector) ObserveCollect(source string, rows int, err error, started time.Time) {
	if source == "" {
		source = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}

	collectTotal.WithLabelValues(source, status).Inc()
	collectDuration.WithLabelValues(source, status).Observe(time.Since(started).Seconds())
	if err == nil {
		collectRows.WithLabelValues(source).Observe(float64(rows))
	}
}

// Queue returns the metrics of the named request queue.
func (m Collector) Queue(name string) queue.Metrics {
	return NewQueue(name)
}
