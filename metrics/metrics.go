// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// SummaryRecomputations counts full analytics recomputations.
	SummaryRecomputations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "analytics",
		Name:      "summary_recomputations_total",
		Help:      "Number of times the analytics summary was rebuilt from a snapshot.",
	})

	// SummaryDurationSeconds is the time spent building one summary.
	SummaryDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "civicsync",
		Subsystem: "analytics",
		Name:      "summary_duration_seconds",
		Help:      "Time to aggregate one issue snapshot.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// SnapshotIssues is the size of the latest snapshot.
	SnapshotIssues = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicsync",
		Subsystem: "feed",
		Name:      "snapshot_issues",
		Help:      "Number of issues in the latest snapshot.",
	})

	// FeedErrors counts failed snapshot reads, skipped documents and watch
	// interruptions.
	FeedErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "feed",
		Name:      "errors_total",
		Help:      "Feed failures, labeled by stage.",
	}, []string{"stage"})

	// ExportsTotal counts export requests by kind and result.
	ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "export",
		Name:      "requests_total",
		Help:      "Export requests, labeled by kind (csv, report) and result.",
	}, []string{"kind", "result"})

	// WebsocketClients is the number of connected dashboard sockets.
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicsync",
		Subsystem: "realtime",
		Name:      "clients",
		Help:      "Connected analytics websocket clients.",
	})
)

// Register registers all instruments with the default registry. Safe to call
// more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SummaryRecomputations,
			SummaryDurationSeconds,
			SnapshotIssues,
			FeedErrors,
			ExportsTotal,
			WebsocketClients,
		)
	})
}
