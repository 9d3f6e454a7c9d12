package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// FramesCaptured counts frame ticks appended to detection logs.
	FramesCaptured = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inspection",
		Subsystem: "pipeline",
		Name:      "frames_captured_total",
		Help:      "Total number of frame ticks appended to detection logs.",
	})

	// DetectionsLogged counts individual detection events across all ticks.
	DetectionsLogged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inspection",
		Subsystem: "pipeline",
		Name:      "detections_logged_total",
		Help:      "Total number of detection events written to detection logs.",
	})

	// AnalysisCallsTotal counts analysis-service calls by outcome.
	AnalysisCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inspection",
		Subsystem: "pipeline",
		Name:      "analysis_calls_total",
		Help:      "Total number of analysis-service calls, labeled by result.",
	}, []string{"result"})

	// IssuesSavedTotal counts issues persisted from analysis responses.
	IssuesSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "inspection",
		Subsystem: "pipeline",
		Name:      "issues_saved_total",
		Help:      "Total number of issues persisted from analysis responses.",
	})

	// IngestDurationSeconds is end-to-end time per ingested frame.
	IngestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inspection",
		Subsystem: "pipeline",
		Name:      "ingest_duration_seconds",
		Help:      "End-to-end time to ingest one cleaned frame, labeled by result.",
		// Keep buckets fairly coarse to avoid high-cardinality time series.
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	}, []string{"result"})
)

// Register registers pipeline metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			FramesCaptured,
			DetectionsLogged,
			AnalysisCallsTotal,
			IssuesSavedTotal,
			IngestDurationSeconds,
		)
	})
}
